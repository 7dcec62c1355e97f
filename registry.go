package dtd

import (
	"context"
	"log/slog"

	"github.com/lestrrat-go/dtd/internal/debug"
	"github.com/lestrrat-go/dtd/internal/orderedmap"
	"github.com/lestrrat-go/dtd/sax"
)

type attrKey struct {
	elem Name
	attr Name
}

type attributeDecl struct {
	typ sax.AttributeType
	use sax.AttributeUse
}

// registry holds every declaration seen so far. All maps are keyed on
// interned names, and the first declaration of a name wins.
type registry struct {
	names      *Interner
	general    *orderedmap.Map[Name, *Entity]
	parameter  *orderedmap.Map[Name, *Entity]
	elements   *orderedmap.Map[Name, sax.ContentModelType]
	attributes *orderedmap.Map[attrKey, attributeDecl]
	notations  *orderedmap.Map[Name, struct{}]
	idAttrs    map[Name]Name
}

func newRegistry(names *Interner) *registry {
	r := &registry{
		names:      names,
		general:    orderedmap.New[Name, *Entity](),
		parameter:  orderedmap.New[Name, *Entity](),
		elements:   orderedmap.New[Name, sax.ContentModelType](),
		attributes: orderedmap.New[attrKey, attributeDecl](),
		notations:  orderedmap.New[Name, struct{}](),
		idAttrs:    make(map[Name]Name),
	}
	for _, e := range predefinedEntities {
		_ = r.general.Set(names.Intern(e.Name), e)
	}
	return r
}

// declareEntity registers e. It returns false if the name is already
// taken in e's namespace, in which case e is ignored.
func (r *registry) declareEntity(e *Entity) bool {
	table := r.general
	if e.IsParameter() {
		table = r.parameter
	}
	return table.Set(r.names.Intern(e.Name), e) == nil
}

func (r *registry) lookupEntity(name string) (*Entity, bool) {
	id, ok := r.names.Lookup(name)
	if !ok {
		return nil, false
	}
	return r.general.Get(id)
}

func (r *registry) lookupParameterEntity(name string) (*Entity, bool) {
	id, ok := r.names.Lookup(name)
	if !ok {
		return nil, false
	}
	return r.parameter.Get(id)
}

func (r *registry) declareElement(name string, typ sax.ContentModelType) bool {
	return r.elements.Set(r.names.Intern(name), typ) == nil
}

func (r *registry) declareAttribute(elem, attr string, decl attributeDecl) bool {
	key := attrKey{elem: r.names.Intern(elem), attr: r.names.Intern(attr)}
	return r.attributes.Set(key, decl) == nil
}

// declareIDAttribute records attr as the ID attribute of elem. It
// returns false when elem already has a different one.
func (r *registry) declareIDAttribute(elem, attr string) bool {
	e := r.names.Intern(elem)
	a := r.names.Intern(attr)
	if prev, ok := r.idAttrs[e]; ok {
		return prev == a
	}
	r.idAttrs[e] = a
	return true
}

func (r *registry) declareNotation(name string) bool {
	return r.notations.Set(r.names.Intern(name), struct{}{}) == nil
}

// trace logs how many declarations of each kind were accepted.
func (r *registry) trace(ctx context.Context) {
	TraceEvent(ctx, "declarations",
		slog.Int("general", r.general.Len()),
		slog.Int("parameter", r.parameter.Len()),
		slog.Int("elements", r.elements.Len()),
		slog.Int("attributes", r.attributes.Len()),
		slog.Int("notations", r.notations.Len()),
	)
	if debug.Enabled {
		for id, e := range r.parameter.Range() {
			debug.Printf("parameter entity %s (%s)", r.names.String(id), e.Type)
		}
		for id, e := range r.general.Range() {
			debug.Printf("general entity %s (%s)", r.names.String(id), e.Type)
		}
	}
}
