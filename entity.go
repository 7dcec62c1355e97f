package dtd

type EntityType int

const (
	InternalGeneralEntity EntityType = iota + 1
	ExternalGeneralParsedEntity
	ExternalGeneralUnparsedEntity
	InternalParameterEntity
	ExternalParameterEntity
	InternalPredefinedEntity
)

func (t EntityType) String() string {
	switch t {
	case InternalGeneralEntity:
		return "InternalGeneralEntity"
	case ExternalGeneralParsedEntity:
		return "ExternalGeneralParsedEntity"
	case ExternalGeneralUnparsedEntity:
		return "ExternalGeneralUnparsedEntity"
	case InternalParameterEntity:
		return "InternalParameterEntity"
	case ExternalParameterEntity:
		return "ExternalParameterEntity"
	case InternalPredefinedEntity:
		return "InternalPredefinedEntity"
	}
	return "UnknownEntity"
}

// Entity is a declared entity. Value is set for the internal variants;
// PublicID, SystemID and NotationName for the external ones.
type Entity struct {
	Type         EntityType
	Name         string
	Value        string
	PublicID     string
	SystemID     string
	NotationName string
	// BaseURI is the base of the entity the declaration appeared in.
	BaseURI string
}

func (e *Entity) IsParameter() bool {
	return e.Type == InternalParameterEntity || e.Type == ExternalParameterEntity
}

func (e *Entity) IsExternal() bool {
	switch e.Type {
	case ExternalGeneralParsedEntity, ExternalGeneralUnparsedEntity, ExternalParameterEntity:
		return true
	}
	return false
}

func (e *Entity) IsUnparsed() bool {
	return e.Type == ExternalGeneralUnparsedEntity
}

// Key identifies the entity on the input stack. Parameter and general
// entities live in different namespaces.
func (e *Entity) Key() string {
	if e.IsParameter() {
		return "%" + e.Name
	}
	return "&" + e.Name
}

var predefinedEntities = []*Entity{
	{Type: InternalPredefinedEntity, Name: "lt", Value: "<"},
	{Type: InternalPredefinedEntity, Name: "gt", Value: ">"},
	{Type: InternalPredefinedEntity, Name: "amp", Value: "&"},
	{Type: InternalPredefinedEntity, Name: "apos", Value: "'"},
	{Type: InternalPredefinedEntity, Name: "quot", Value: "\""},
}

func resolvePredefinedEntity(name string) *Entity {
	for _, e := range predefinedEntities {
		if e.Name == name {
			return e
		}
	}
	return nil
}
