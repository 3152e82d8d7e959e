package server

import (
	"strings"

	"gitlab.com/tozd/go/errors"

	"surface/internal/components"
)

// aliases reads the aliases declared by the module next to a template.
// Called with mu held.
func (s *Server) aliases(uri string) components.Aliases {
	path, err := uriToPath(uri)
	if err != nil {
		return components.Aliases{}
	}
	aliases, err := components.ReadAliases(s.fs, components.CompanionPath(path, s.config.CompanionExtension))
	if err != nil {
		log.Warningf("%s", err.Error())
		return components.Aliases{}
	}
	return aliases
}

// qualify resolves a short component name through the template's aliases.
// Called with mu held.
func (s *Server) qualify(uri, short string) (string, bool) {
	if s.catalog == nil {
		return "", false
	}
	return s.aliases(uri).Resolve(short)
}

// component looks up the component a template refers to by its short name.
// Called with mu held.
func (s *Server) component(uri, short string) (components.Component, bool) {
	qualified, ok := s.qualify(uri, short)
	if !ok {
		return components.Component{}, false
	}
	comp, err := s.catalog.Lookup(qualified)
	if err != nil {
		if !errors.Is(err, components.ErrNotFound) {
			log.Warningf("%s", err.Error())
		}
		return components.Component{}, false
	}
	return comp, true
}

// prop looks up a prop of the component a template refers to by its short
// name. Called with mu held.
func (s *Server) prop(uri, short, name string) (components.Component, components.Prop, bool) {
	qualified, ok := s.qualify(uri, short)
	if !ok {
		return components.Component{}, components.Prop{}, false
	}
	comp, prop, err := s.catalog.Prop(qualified, name)
	if err != nil {
		if !errors.Is(err, components.ErrNotFound) {
			log.Warningf("%s", err.Error())
		}
		return components.Component{}, components.Prop{}, false
	}
	return comp, prop, true
}

func componentMarkdown(comp components.Component) string {
	return "```elixir\nalias " + comp.Name + "\n```\n##### *use Surface.Component*\n---\n\n" + comp.Docs
}

func propMarkdown(p components.Prop) string {
	return "```elixir\nprop " + p.Name + ", " + p.Opts + "\n```\n\n" + p.Doc
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
