// Package gen provides the schema metamodel of mojen and the queries the
// generators derive from it.
//
// # Architecture
//
// The pipeline follows this flow:
//
//	Schema descriptors (compiler/load) or the builder API
//	        ↓
//	   Graph (types, props, references, constraints)
//	        ↓
//	   Graph.Build (layered prop tables, reference resolution, validation)
//	        ↓
//	   cascade.Compile (one Plan per operation)
//	        ↓
//	   cascade.Dispatcher at runtime, or cascade.Emit + Writer
//
// # Key Types
//
//   - Graph: the explicit context of a schema. It owns the prop arena and
//     the cache of path-specialized prop views.
//   - Type: an Entity, Model, Complex, Enum or Interface with its props
//   - Prop: a property; Reference describes its relationship, if any
//   - Reference: target type, Binding flags, Multiplicity flags and Axis
//   - FormedNavigationPath: an immutable chain of navigations
//   - FormedType: a type as seen through a path
//   - UniqueConfig, IndexConfig, SequenceConfig: constraints
//
// Types are declared with the builder methods and sealed by Build:
//
//	g := gen.NewGraph(config)
//	address := g.Entity("Address")
//	address.AddKey("Id", gen.TypeInt)
//	invoice := g.Entity("Invoice")
//	invoice.AddKey("Id", gen.TypeInt)
//	invoice.AddReference("Address", address, gen.Owned, gen.ToOne, gen.RefRequired())
//	if err := g.Build(); err != nil {
//	    for _, e := range gen.Errors(err) {
//	        log.Println(e)
//	    }
//	}
//
// # Error Handling
//
// Build reports all errors at once. Each one is a structured error:
//
//   - SchemaError: Schema definition errors
//   - ReferenceError: Reference and back-reference errors
//   - ValidationError: Graph invariant violations
//   - ConfigError: Configuration errors
//   - GenerationError: Plan compilation and file writing errors
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	config, err := gen.NewConfig(
//	    gen.WithTarget("./cascade"),
//	    gen.WithFeatures(gen.FeatureRestore),
//	    gen.WithoutFeatures(gen.FeatureSoftDelete),
//	)
//
// or read from a YAML file with LoadConfigFile.
//
// # Features
//
// Each cascade operation is a feature:
//
//   - cascade/addnested: nested add
//   - cascade/updatenested: nested update
//   - cascade/delete: delete (default)
//   - cascade/softdelete: soft delete (default)
//   - cascade/restore: restore of soft deleted rows
//   - format: format emitted files with goimports (default)
package gen
