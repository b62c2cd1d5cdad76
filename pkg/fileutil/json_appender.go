package fileutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/oarkflow/errors"
	"github.com/oarkflow/json"
)

var (
	ErrMissingOpen  = errors.New("invalid JSON file: missing opening bracket")
	ErrMissingClose = errors.New("invalid JSON file: missing closing bracket")
	ErrClosed       = errors.New("appender is closed")
)

// Option configures a JSONAppender.
type Option[T any] func(*JSONAppender[T])

// WithoutSync skips the fsync after every append.
func WithoutSync[T any]() Option[T] {
	return func(ja *JSONAppender[T]) {
		ja.syncOnAppend = false
	}
}

// JSONAppender appends elements of type T to a JSON array stored in a file.
// Appends from several processes are serialized by a lock file next to it.
type JSONAppender[T any] struct {
	filePath       string
	file           *os.File
	fileLock       *flock.Flock
	mu             sync.Mutex
	tailBufferSize int
	syncOnAppend   bool
	closed         bool
}

func NewJSONAppender[T any](filePath string, opts ...Option[T]) (*JSONAppender[T], error) {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	ja := &JSONAppender[T]{
		filePath:       filePath,
		file:           f,
		fileLock:       flock.New(filePath + ".lock"),
		tailBufferSize: 1024,
		syncOnAppend:   true,
	}
	for _, opt := range opts {
		opt(ja)
	}
	if err := ja.validateOrInitialize(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return ja, nil
}

func (ja *JSONAppender[T]) Path() string { return ja.filePath }

// validateOrInitialize checks that the file holds a JSON array, writing an
// empty one into a new file.
func (ja *JSONAppender[T]) validateOrInitialize() error {
	fi, err := ja.file.Stat()
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		if _, err := ja.file.WriteAt([]byte("[\n]\n"), 0); err != nil {
			return err
		}
		return ja.sync()
	}
	head := make([]byte, 10)
	if _, err := ja.file.ReadAt(head, 0); err != nil && err != io.EOF {
		return err
	}
	if !bytes.Contains(head, []byte("[")) {
		return ErrMissingOpen
	}
	size := fi.Size()
	tailSize := min(int64(10), size)
	tail := make([]byte, tailSize)
	if _, err := ja.file.ReadAt(tail, size-tailSize); err != nil && err != io.EOF {
		return err
	}
	if !bytes.Contains(tail, []byte("]")) {
		return ErrMissingClose
	}
	return nil
}

func (ja *JSONAppender[T]) Append(element T) error {
	return ja.AppendBatch([]T{element})
}

// AppendBatch writes elements before the closing bracket so the file stays
// a valid JSON array after every call.
func (ja *JSONAppender[T]) AppendBatch(elements []T) error {
	if len(elements) == 0 {
		return nil
	}
	ja.mu.Lock()
	defer ja.mu.Unlock()
	if ja.closed {
		return ErrClosed
	}
	if err := ja.fileLock.Lock(); err != nil {
		return err
	}
	defer func() {
		_ = ja.fileLock.Unlock()
	}()

	fi, err := ja.file.Stat()
	if err != nil {
		return err
	}
	tailSize := min(int64(ja.tailBufferSize), fi.Size())
	offset := fi.Size() - tailSize
	buf := make([]byte, tailSize)
	if _, err := ja.file.ReadAt(buf, offset); err != nil && err != io.EOF {
		return err
	}
	closing := bytes.LastIndexByte(buf, ']')
	if closing == -1 {
		return ErrMissingClose
	}
	pos := closing - 1
	for pos >= 0 && unicode.IsSpace(rune(buf[pos])) {
		pos--
	}
	if pos < 0 {
		return errors.New("invalid JSON file: unable to find content before closing bracket")
	}
	prefix := []byte(",\n  ")
	if buf[pos] == '[' {
		prefix = []byte("\n  ")
	}
	data := prefix
	for i, element := range elements {
		encoded, err := json.Marshal(element)
		if err != nil {
			return err
		}
		if i > 0 {
			data = append(data, []byte(",\n  ")...)
		}
		data = append(data, encoded...)
	}
	data = append(data, []byte("\n]\n")...)

	cut := offset + int64(pos) + 1
	if err := ja.file.Truncate(cut); err != nil {
		return err
	}
	if _, err := ja.file.WriteAt(data, cut); err != nil {
		return err
	}
	return ja.sync()
}

func (ja *JSONAppender[T]) sync() error {
	if ja.syncOnAppend {
		return ja.file.Sync()
	}
	return nil
}

func (ja *JSONAppender[T]) Close() error {
	ja.mu.Lock()
	defer ja.mu.Unlock()
	if ja.closed {
		return nil
	}
	ja.closed = true
	return ja.file.Close()
}

// ReadAll decodes every element of the JSON array stored at path. A missing
// file reads as empty.
func ReadAll[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Unlock()
	}()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []T
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
