// Package sharedgrid implements the fixed-capacity shared-memory grid: a
// POSIX shared-memory region holding a Header followed by a row-major
// Cell matrix, with a single writer (the VTE parser) and many lock-free
// readers using the seqlock pattern of spec.md §3/§9.
//
// On Linux, POSIX shared memory ("shm_open") is just a regular open(2)
// against the tmpfs mounted at /dev/shm; that is the approach taken here,
// matching how the teacher's own indirect golang.org/x/sys dependency is
// used elsewhere in the pack for direct syscalls rather than wrapping
// libc. mmap is done through golang.org/x/sys/unix.
package sharedgrid

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/scarab-term/scarab/internal/protocol"
)

// Region is a memory-mapped shared-grid region: a Header at offset 0
// followed by Cols*Rows Cells.
type Region struct {
	name string
	file *os.File
	data []byte // mmap'd bytes, len == protocol.RegionSize(cap)

	capCols int
	capRows int
	owner   bool // true if this process created (and should unlink) the region
}

func shmPath(name string) string {
	// name is expected to start with "/", per POSIX shm_open convention
	// (see xdg.RegionName); map it onto /dev/shm the way glibc's
	// shm_open implementation does internally.
	return filepath.Join("/dev/shm", filepath.Base(name))
}

// Create allocates a new named region sized for capCols×capRows cells and
// initializes its header (magic, version, dims, sequence=1).
func Create(name string, capCols, capRows int) (*Region, error) {
	path := shmPath(name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("sharedgrid: create %s: %w", name, err)
	}

	size := protocol.RegionSize(capCols, capRows)
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("sharedgrid: truncate %s: %w", name, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("sharedgrid: mmap %s: %w", name, err)
	}

	r := &Region{name: name, file: f, data: data, capCols: capCols, capRows: capRows, owner: true}
	h := protocol.Header{
		Magic:    protocol.Magic,
		Version:  protocol.Version,
		Cols:     uint16(capCols),
		Rows:     uint16(capRows),
		Sequence: 1,
	}
	protocol.EncodeHeader(r.data[:protocol.HeaderSize], h)
	return r, nil
}

// Open attaches to an existing region by name, validating magic/version.
// capCols/capRows must be supplied by the caller (learned out-of-band,
// e.g. via the Attached control message) since the region's own size is
// fixed at creation and cannot be probed without first knowing it.
func Open(name string, capCols, capRows int) (*Region, error) {
	path := shmPath(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("sharedgrid: open %s: %w", name, err)
	}

	size := protocol.RegionSize(capCols, capRows)
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sharedgrid: mmap %s: %w", name, err)
	}

	r := &Region{name: name, file: f, data: data, capCols: capCols, capRows: capRows}
	h := r.readHeaderUnsynchronized()
	if err := protocol.ValidateHeader(h); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Name returns the region's shared-memory name.
func (r *Region) Name() string { return r.name }

// Capacity returns the fixed capacity this region was created/opened for.
func (r *Region) Capacity() (cols, rows int) { return r.capCols, r.capRows }

// Close unmaps the region. If this process created the region, Close also
// unlinks it from the filesystem (spec.md §3 lifecycle: unlinked on
// daemon exit or explicit delete); openers (clients) never unlink.
func (r *Region) Close() error {
	err := unix.Munmap(r.data)
	r.file.Close()
	if r.owner {
		os.Remove(shmPath(r.name))
	}
	return err
}

// Unlink removes the region's backing file without unmapping it from this
// process, for explicit-delete flows where the owner is not the current
// mapping holder.
func Unlink(name string) error {
	return os.Remove(shmPath(name))
}
