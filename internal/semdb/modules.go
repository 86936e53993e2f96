package semdb

import (
	"errors"
	"path"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/jward/refscope/internal/syntax"
)

// ModuleID identifies a module. File modules have a zero Decl range;
// inline modules use the range of their mod item.
type ModuleID struct {
	File syntax.FileID
	Decl syntax.TextRange
}

// IsFile reports whether the module is a whole file.
func (id ModuleID) IsFile() bool { return id.Decl == (syntax.TextRange{}) }

// Module is a node of the module tree.
type Module struct {
	ID ModuleID
	// Name is "crate" for crate roots.
	Name string
	// Decl is the mod item declaring the module. It is zero for crate roots.
	Decl syntax.Node
	// Items is the source_file or declaration_list holding the module's items.
	Items syntax.Node

	dir string
}

type moduleTree struct {
	g       graph.Graph[ModuleID, *Module]
	byID    map[ModuleID]*Module
	declMod map[nodeKey]ModuleID
	fileMod map[syntax.FileID]ModuleID
	parent  map[ModuleID]ModuleID
}

func (s *Snapshot) modules() *moduleTree {
	s.modsOnce.Do(func() { s.mods = s.buildModules() })
	return s.mods
}

func (s *Snapshot) isCrateRoot(p string) bool {
	if len(s.crateRoots) == 0 {
		base := path.Base(p)
		return base == "lib.rs" || base == "main.rs"
	}
	for _, root := range s.crateRoots {
		root = strings.TrimPrefix(root, "/")
		if strings.TrimPrefix(p, "/") == root || strings.HasSuffix(p, "/"+root) {
			return true
		}
	}
	return false
}

// buildModules attaches files to crate roots through `mod` items. Files no
// root reaches become roots of their own.
func (s *Snapshot) buildModules() *moduleTree {
	mt := &moduleTree{
		g:       graph.New(func(m *Module) ModuleID { return m.ID }, graph.Directed(), graph.PreventCycles()),
		byID:    make(map[ModuleID]*Module),
		declMod: make(map[nodeKey]ModuleID),
		fileMod: make(map[syntax.FileID]ModuleID),
		parent:  make(map[ModuleID]ModuleID),
	}

	addRoot := func(id syntax.FileID) {
		e := s.files[id]
		m := &Module{
			ID:    ModuleID{File: id},
			Name:  "crate",
			Items: e.tree.Root(),
			dir:   path.Dir(e.file.Path),
		}
		if mt.add(m, nil) {
			s.attachChildren(mt, m)
		}
	}
	for _, id := range s.order {
		if s.isCrateRoot(s.files[id].file.Path) {
			addRoot(id)
		}
	}
	for _, id := range s.order {
		if _, ok := mt.fileMod[id]; !ok {
			addRoot(id)
		}
	}

	if preds, err := mt.g.PredecessorMap(); err == nil {
		for child, edges := range preds {
			for parent := range edges {
				mt.parent[child] = parent
			}
		}
	}
	return mt
}

func (mt *moduleTree) add(m *Module, parent *Module) bool {
	if err := mt.g.AddVertex(m); err != nil {
		return false
	}
	if parent != nil {
		if err := mt.g.AddEdge(parent.ID, m.ID); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return false
		}
	}
	mt.byID[m.ID] = m
	if m.ID.IsFile() {
		mt.fileMod[m.ID.File] = m.ID
	}
	if !m.Decl.IsZero() {
		mt.declMod[keyOf(m.Decl)] = m.ID
	}
	return true
}

func (s *Snapshot) attachChildren(mt *moduleTree, m *Module) {
	for _, item := range m.Items.NamedChildren() {
		if item.Kind() != "mod_item" {
			continue
		}
		name := syntax.Name(item).Text()
		if name == "" {
			continue
		}
		if body := item.ChildByField("body"); !body.IsZero() {
			child := &Module{
				ID:    ModuleID{File: item.File(), Decl: item.Range()},
				Name:  name,
				Decl:  item,
				Items: body,
				dir:   path.Join(m.dir, name),
			}
			if mt.add(child, m) {
				s.attachChildren(mt, child)
			}
			continue
		}
		for _, candidate := range []string{path.Join(m.dir, name+".rs"), path.Join(m.dir, name, "mod.rs")} {
			id, ok := s.byPath[candidate]
			if !ok {
				continue
			}
			if _, attached := mt.fileMod[id]; attached {
				break
			}
			child := &Module{
				ID:    ModuleID{File: id},
				Name:  name,
				Decl:  item,
				Items: s.files[id].tree.Root(),
				dir:   childDir(candidate),
			}
			if mt.add(child, m) {
				s.attachChildren(mt, child)
			}
			break
		}
	}
}

// childDir is the directory holding the files of a file module's children.
func childDir(p string) string {
	dir, base := path.Dir(p), path.Base(p)
	if base == "mod.rs" {
		return dir
	}
	return path.Join(dir, strings.TrimSuffix(base, ".rs"))
}

// Module returns a module by id.
func (s *Snapshot) Module(id ModuleID) (*Module, bool) {
	m, ok := s.modules().byID[id]
	return m, ok
}

// ModuleOf returns the module whose items contain n.
func (s *Snapshot) ModuleOf(n syntax.Node) (ModuleID, bool) {
	mt := s.modules()
	for cur := range n.OuterAncestors() {
		switch cur.Kind() {
		case "declaration_list":
			if p := cur.Parent(); p.Kind() == "mod_item" {
				id, ok := mt.declMod[keyOf(p)]
				return id, ok
			}
		case "source_file":
			if cur.Tree().IsExpansion() {
				continue
			}
			id, ok := mt.fileMod[cur.File()]
			return id, ok
		}
	}
	return ModuleID{}, false
}

// ParentModule returns the parent of a module.
func (s *Snapshot) ParentModule(id ModuleID) (ModuleID, bool) {
	p, ok := s.modules().parent[id]
	return p, ok
}

// CrateRoot returns the root of the crate containing a module.
func (s *Snapshot) CrateRoot(id ModuleID) ModuleID {
	for {
		p, ok := s.ParentModule(id)
		if !ok {
			return id
		}
		id = p
	}
}

// ModuleForDecl returns the module declared by a mod item.
func (s *Snapshot) ModuleForDecl(item syntax.Node) (ModuleID, bool) {
	id, ok := s.modules().declMod[keyOf(item)]
	return id, ok
}
