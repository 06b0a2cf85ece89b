package cachedb

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

var ErrDbFileWriteFailed = errors.New("cache file write failed")
var ErrSourceFileReadFailed = errors.New("cache file read failed")
var ErrStorageFailed = errors.New("cache storage error")

// FlushStrategy controls when appended commands reach the disk.
type FlushStrategy string

const (
	// Sync fsyncs after every write batch.
	Sync FlushStrategy = "sync"
	// Async leaves fsync to a periodic background flush.
	Async FlushStrategy = "async"
)

// aof is the append-only command log backing one cache database.
type aof struct {
	mu       sync.Mutex
	strategy FlushStrategy
	f        *os.File
	flushes  int
	cursor   int
}

func openAOF(filepath string, strategy FlushStrategy) (*aof, error) {
	f, err := os.OpenFile(filepath, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, errors.Wrapf(ErrStorageFailed, "could not open cache file %s: %s", filepath, err.Error())
	}

	return &aof{f: f, strategy: strategy}, nil
}

func (a *aof) close() (err error) {
	a.mu.Lock()
	defer func() {
		a.f = nil
		a.mu.Unlock()
	}()

	if syncErr := a.f.Sync(); syncErr != nil {
		err = errors.Wrapf(syncErr, "could not sync file %s", a.f.Name())
	}

	if closeErr := a.f.Close(); closeErr != nil && err == nil {
		err = errors.Wrapf(closeErr, "could not close file %s", a.f.Name())
	}

	return
}

// load replays the log into rp. A corrupt or partial tail is cut off at
// the last complete command; a schema version mismatch wipes the file
// entirely, since version 1 has no migration path.
func (a *aof) load(rp replayer) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.f.Stat(); err != nil {
		return errors.Wrapf(err, "could not collect file %s stats", a.f.Name())
	}

	prs := &parser{}
	r := bufio.NewReader(a.f)

	n, err := prs.parse(r, rp)
	if err != nil {
		truncatable := errors.Is(err, io.ErrUnexpectedEOF) ||
			errors.Is(err, ErrChecksumMismatch) ||
			errors.Is(err, ErrCommandInvalid)

		if errors.Is(err, ErrSchemaMismatch) {
			n = 0
			truncatable = true
		}

		if !truncatable {
			return err
		}

		if tErr := a.f.Truncate(int64(n)); tErr != nil {
			return errors.Wrapf(tErr, "could not truncate file %s after parse error", a.f.Name())
		}
	}

	pos, sErr := a.f.Seek(int64(n), io.SeekStart)
	if sErr != nil {
		return errors.Wrapf(ErrStorageFailed, "could not move the cursor: %s", sErr.Error())
	}

	a.cursor = int(pos)

	return nil
}

// fresh reports whether the log holds no commands yet, either because
// the file was just created or because a schema mismatch wiped it.
func (a *aof) fresh() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.cursor == 0
}

// append writes pre-serialized commands to the end of the log.
func (a *aof) append(s *serializer) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.writeUnderLock(s)
}

func (a *aof) writeUnderLock(s *serializer) error {
	n, err := a.f.Write(s.buf.Bytes())
	if err != nil {
		if n > 0 {
			// partial write occurred, roll the file back
			pos, seekErr := a.f.Seek(-int64(n), io.SeekCurrent)
			if seekErr != nil {
				return errors.Wrapf(
					ErrStorageFailed,
					"could not seek file %s back by %d: %v",
					a.f.Name(), n, seekErr,
				)
			}

			if tErr := a.f.Truncate(pos); tErr != nil {
				return errors.Wrapf(tErr, "could not truncate file %s", a.f.Name())
			}
		}

		_ = a.f.Sync()
		return errors.Wrap(ErrDbFileWriteFailed, err.Error())
	}

	if a.strategy == Sync {
		_ = a.f.Sync()
	}

	a.flushes++
	a.cursor += s.buf.Len()
	return nil
}

func (a *aof) sync() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.f.Sync(); err != nil {
		return errors.Wrapf(err, "cannot sync file %s", a.f.Name())
	}

	return nil
}

// writeAndSwap replaces the whole log atomically. Used by vacuum to
// drop superseded set/del commands.
func (a *aof) writeAndSwap(s *serializer) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tmpName := a.f.Name() + ".tmp"
	tmpF, err := os.Create(tmpName)
	if err != nil {
		return errors.Wrapf(err, "could not create %s file for vacuum", tmpName)
	}

	defer func() {
		_ = tmpF.Close()
		_ = os.RemoveAll(tmpName)
	}()

	expectedLen := s.buf.Len()
	n, err := tmpF.Write(s.buf.Bytes())
	if err != nil {
		return errors.Wrapf(err, "vacuum could not write into %s file", tmpName)
	}

	if n != expectedLen {
		return errors.Errorf("vacuum wrote only %d of %d bytes into %s file", n, expectedLen, tmpName)
	}

	if err := tmpF.Sync(); err != nil {
		return errors.Wrapf(err, "vacuum could not sync %s file", tmpName)
	}

	oldName := a.f.Name()
	if err := a.f.Close(); err != nil {
		return errors.Wrapf(err, "vacuum could not close %s file to swap it", oldName)
	}

	if rnErr := os.Rename(tmpName, oldName); rnErr != nil {
		resultErr := errors.Wrapf(rnErr, "vacuum could not swap %s file for %s", oldName, tmpName)
		a.f, err = os.OpenFile(oldName, os.O_CREATE|os.O_RDWR, 0666)
		if err != nil {
			return errors.Wrapf(resultErr, "and could not reopen old file: %s", err.Error())
		}

		return resultErr
	}

	a.f, err = os.OpenFile(oldName, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return errors.Wrapf(err, "could not reopen swapped file %s", oldName)
	}

	pos, err := a.f.Seek(int64(n), io.SeekStart)
	if err != nil {
		return errors.Wrapf(ErrStorageFailed, "could not move the cursor in file %s: %s", oldName, err.Error())
	}

	a.cursor = int(pos)

	return nil
}
