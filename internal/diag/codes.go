package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Configuration: ordering, layering, targets.
	CfgInfo              Code = 1000
	CfgAspectCycle       Code = 1001
	CfgDuplicateLayer    Code = 1002
	CfgUnknownAspect     Code = 1003
	CfgUnknownTarget     Code = 1004
	CfgUnsupportedTarget Code = 1005
	CfgNameExhausted     Code = 1006
	CfgKindMismatch      Code = 1007

	// Templates.
	TplInfo           Code = 2000
	TplNoInnerImpl    Code = 2001
	TplUnknownMember  Code = 2002
	TplBadPlaceholder Code = 2003

	// Constructors.
	CtrInfo                 Code = 3000
	CtrUnsupportedParameter Code = 3001
	CtrAmbiguity            Code = 3002
	CtrParameterRenamed     Code = 3003
	CtrPullUnavailable      Code = 3004

	// Introductions and annotations.
	IntInfo                Code = 4000
	IntConflict            Code = 4001
	IntInheritedNotVirtual Code = 4002
	IntNewModifier         Code = 4003
	IntAnnotationConflict  Code = 4004
	IntNothingToRemove     Code = 4005
	IntNameInUse           Code = 4006

	// Emission.
	EmtInfo        Code = 5000
	EmtMissingPart Code = 5001
	EmtUnitClash   Code = 5002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:             "Unknown error",
		CfgInfo:                 "Configuration information",
		CfgAspectCycle:          "Aspect precedence cycle",
		CfgDuplicateLayer:       "Advices share one layer on the same target",
		CfgUnknownAspect:        "Unknown aspect in precedence list",
		CfgUnknownTarget:        "Advice target does not exist",
		CfgUnsupportedTarget:    "Advice kind not supported on this target",
		CfgNameExhausted:        "No free name after bounded suffixing",
		CfgKindMismatch:         "Advice payload does not match target kind",
		TplInfo:                 "Template information",
		TplNoInnerImpl:          "Proceed without an inner implementation",
		TplUnknownMember:        "Template references an unknown member",
		TplBadPlaceholder:       "Malformed template placeholder",
		CtrInfo:                 "Constructor information",
		CtrUnsupportedParameter: "Parameter cannot be appended to this constructor",
		CtrAmbiguity:            "Appended parameter would make calls ambiguous",
		CtrParameterRenamed:     "Appended parameter renamed",
		CtrPullUnavailable:      "Parameter cannot be pulled from a caller",
		IntInfo:                 "Introduction information",
		IntConflict:             "Introduced member conflicts with an existing member",
		IntInheritedNotVirtual:  "Inherited member cannot be overridden",
		IntNewModifier:          "Introduced member hides an inherited member",
		IntAnnotationConflict:   "Annotation already present",
		IntNothingToRemove:      "No annotation to remove",
		IntNameInUse:            "Introduced name already in use",
		EmtInfo:                 "Emitter information",
		EmtMissingPart:          "Type has no partial declaration to host members",
		EmtUnitClash:            "Generated unit path clashes with an input file",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TPL%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CTR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("INT%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("EMT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
