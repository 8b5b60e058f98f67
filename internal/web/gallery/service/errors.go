package service

import (
	"fmt"

	"github.com/Laisky/errors/v2"
)

var (
	// ErrInvalidInput reports a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBlobWrite reports a failed write to the blob store; nothing
	// was persisted.
	ErrBlobWrite = errors.New("blob write failure")
)

// blobWriteError keeps both ErrBlobWrite and the store's raw failure
// reachable through errors.Is/As.
type blobWriteError struct {
	storagePath string
	cause       error
}

func (e *blobWriteError) Error() string {
	return fmt.Sprintf("store blob `%s`: %v", e.storagePath, e.cause)
}

func (e *blobWriteError) Is(target error) bool {
	return target == ErrBlobWrite
}

func (e *blobWriteError) Unwrap() error {
	return e.cause
}

// PersistError reports a failed catalog write after the blob was
// already stored. The pipeline attempts a compensation delete of the
// blob; when that also fails OrphanedBlob is set and the object stays
// behind at StoragePath.
type PersistError struct {
	StoragePath  string
	OrphanedBlob bool
	cause        error
}

func (e *PersistError) Error() string {
	if e.OrphanedBlob {
		return fmt.Sprintf("persist file record (blob orphaned at `%s`): %v", e.StoragePath, e.cause)
	}

	return fmt.Sprintf("persist file record (blob rolled back): %v", e.cause)
}

func (e *PersistError) Unwrap() error {
	return e.cause
}
