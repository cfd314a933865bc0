package logging

const (
	// FieldComponent names the package or subsystem emitting the record.
	FieldComponent = "component"
	// FieldEventType is a stable machine-readable name for the event.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldStream is a container stream path.
	FieldStream = "stream"
	// FieldObjectID is a persisted object identifier.
	FieldObjectID = "object_id"
	// FieldMobID is a mob's unique identifier.
	FieldMobID = "mob_id"
	// FieldClass is a class name from the dictionary.
	FieldClass = "class"
	// FieldPath is a filesystem path.
	FieldPath = "path"
	// FieldGeneration is a container commit generation.
	FieldGeneration = "generation"
)
