package sax

import "strconv"

func (t ContentModelType) String() string {
	switch t {
	case ContentModelEmpty:
		return "EMPTY"
	case ContentModelAny:
		return "ANY"
	case ContentModelMixed:
		return "MIXED"
	case ContentModelChildren:
		return "CHILDREN"
	}
	return "ContentModelType(" + strconv.Itoa(int(t)) + ")"
}

func (t ConnectorType) String() string {
	switch t {
	case Choice:
		return "|"
	case Sequence:
		return ","
	}
	return "ConnectorType(" + strconv.Itoa(int(t)) + ")"
}

// String returns the indicator as it appears in DTD syntax. Exactly
// once has no indicator and yields an empty string.
func (o Occurrence) String() string {
	switch o {
	case OccurrenceZeroOrMore:
		return "*"
	case OccurrenceOneOrMore:
		return "+"
	case OccurrenceZeroOrOne:
		return "?"
	case OccurrenceOnce:
		return ""
	}
	return "Occurrence(" + strconv.Itoa(int(o)) + ")"
}

func (u AttributeUse) String() string {
	switch u {
	case UseNormal:
		return "NORMAL"
	case UseImplied:
		return "#IMPLIED"
	case UseFixed:
		return "#FIXED"
	case UseRequired:
		return "#REQUIRED"
	}
	return "AttributeUse(" + strconv.Itoa(int(u)) + ")"
}

var attrTypeNames = [...]string{
	AttrInvalid:     "INVALID",
	AttrCDATA:       "CDATA",
	AttrID:          "ID",
	AttrIDRef:       "IDREF",
	AttrIDRefs:      "IDREFS",
	AttrEntity:      "ENTITY",
	AttrEntities:    "ENTITIES",
	AttrNMToken:     "NMTOKEN",
	AttrNMTokens:    "NMTOKENS",
	AttrEnumeration: "ENUMERATION",
	AttrNotation:    "NOTATION",
}

func (t AttributeType) String() string {
	if t < 0 || int(t) >= len(attrTypeNames) {
		return "AttributeType(" + strconv.Itoa(int(t)) + ")"
	}
	return attrTypeNames[t]
}

// IsTokenized reports whether values of this type are subject to
// whitespace collapsing during attribute value normalization.
func (t AttributeType) IsTokenized() bool {
	return t != AttrCDATA && t != AttrInvalid
}
