package extraction

import "fmt"

type ErrUnsupportedFormat struct {
	error
}

func NewErrUnsupportedFormat(name string) *ErrUnsupportedFormat {
	return &ErrUnsupportedFormat{fmt.Errorf("unsupported document format: %s", name)}
}

type ErrFileCorrupted struct {
	error
}

func NewErrFileCorrupted(path string, cause error) *ErrFileCorrupted {
	return &ErrFileCorrupted{fmt.Errorf("file %s cannot be parsed: %w", path, cause)}
}

type ErrEmptyDocument struct {
	error
}

func NewErrEmptyDocument(path string) *ErrEmptyDocument {
	return &ErrEmptyDocument{fmt.Errorf("file %s contains no extractable content", path)}
}
