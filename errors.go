package townabm

// Message templates shared by configuration loaders, the engine, and
// tests. Kept as constants so both production errors and test assertions
// quote the exact same wording.
const (
	// IntKeyNotFoundError is the message for "integer key not found" errors.
	IntKeyNotFoundError = "key %d not found"

	// IntKeyExistsError is the message printed when a given key already exists.
	IntKeyExistsError = "key %d already exists"

	InvalidFloatParameterError  = "invalid %s %f, %s"
	InvalidIntParameterError    = "invalid %s %d, %s"
	InvalidStringParameterError = "invalid %s %s, %s"

	UnrecognizedKeywordError = "%s is not a recognized value for %s"
	FileParsingError         = "error parsing line %d: %s"
	MissingSetupTagError     = "missing required setup tag %q"
)

const (
	UnequalFloatParameterError  = "expected %s %f, instead got %f"
	UnequalIntParameterError    = "expected %s %d, instead got %d"
	UnequalStringParameterError = "expected %s %s, instead got %s"
	UnexpectedErrorWhileError   = "encountered error while %s: %s"
	ExpectedErrorWhileError     = "expected an error while %s, instead got none"
)
