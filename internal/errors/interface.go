package errors

// ErrorCode names a failure class. Callers branch on it with HasCode.
type ErrorCode string

// Error is a coded error. Data carries structured context for logs.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory builds coded errors; each package keeps its codes in errors.go.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
