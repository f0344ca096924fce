package gen

import (
	"github.com/syssam/mojen"
)

var (
	// FeatureAddNested generates the propagation of nested adds into
	// owned inline objects.
	FeatureAddNested = Feature{
		Name:        "cascade/addnested",
		Stage:       Beta,
		Default:     false,
		Description: "Propagates adds of a row into its nested owned references",
		Op:          mojen.OpAddNested,
	}

	// FeatureUpdateNested generates the propagation of nested updates.
	FeatureUpdateNested = Feature{
		Name:        "cascade/updatenested",
		Stage:       Beta,
		Default:     false,
		Description: "Propagates updates of a row into its nested (non-loose) references",
		Op:          mojen.OpUpdateNested,
	}

	// FeatureDelete generates hard cascade deletes along owned references.
	FeatureDelete = Feature{
		Name:        "cascade/delete",
		Stage:       Stable,
		Default:     true,
		Description: "Deletes owned rows together with their owner",
		Op:          mojen.OpDelete,
	}

	// FeatureSoftDelete generates soft-delete cascades. Targets must carry a
	// deleted marker.
	FeatureSoftDelete = Feature{
		Name:        "cascade/softdelete",
		Stage:       Stable,
		Default:     true,
		Description: "Marks owned and cascade-marked child rows as deleted together with their owner",
		Op:          mojen.OpSoftDelete,
	}

	// FeatureRestore generates the inverse of the soft-delete cascade.
	FeatureRestore = Feature{
		Name:        "cascade/restore",
		Stage:       Alpha,
		Default:     false,
		Description: "Restores soft-deleted rows together with their owner",
		Op:          mojen.OpRestore,
	}

	// FeatureFormat runs goimports over every emitted file before writing it.
	FeatureFormat = Feature{
		Name:        "format",
		Stage:       Stable,
		Default:     true,
		Description: "Formats emitted files with goimports",
	}

	// AllFeatures holds a list of all feature-flags.
	AllFeatures = []Feature{
		FeatureAddNested,
		FeatureUpdateNested,
		FeatureDelete,
		FeatureSoftDelete,
		FeatureRestore,
		FeatureFormat,
	}
)

// FeatureStage describes the stage of the codegen feature.
type FeatureStage int

const (
	_ FeatureStage = iota

	// Experimental features are in development, and actively being tested.
	Experimental

	// Alpha features are features whose initial development was finished, but
	// we expect breaking-changes to their APIs.
	Alpha

	// Beta features are Alpha features that were documented, and no
	// breaking-changes are expected for them.
	Beta

	// Stable features are Beta features that were running for a while.
	Stable
)

// String returns the stage name.
func (s FeatureStage) String() string {
	switch s {
	case Experimental:
		return "experimental"
	case Alpha:
		return "alpha"
	case Beta:
		return "beta"
	case Stable:
		return "stable"
	}
	return "unknown"
}

// A Feature of the mojen codegen.
type Feature struct {
	// Name of the feature.
	Name string

	// Stage of the feature.
	Stage FeatureStage

	// Default values indicates if this feature is enabled by default.
	Default bool

	// A Description of this feature.
	Description string

	// Op is the cascade operation the feature generates, if any.
	Op mojen.Op
}

// FeatureByName returns the feature with the given name.
func FeatureByName(name string) (Feature, bool) {
	for _, f := range AllFeatures {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}
