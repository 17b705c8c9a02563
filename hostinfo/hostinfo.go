// Package hostinfo probes the machine a DFXML document is produced on:
// CPU identification, kernel identity, the invoking user, and process
// resource usage. It feeds the execution_environment and rusage blocks
// of the writer's provenance output.
//
// Probing never fails. Information a platform cannot provide is
// reported with ok == false and the writer omits the matching elements.
package hostinfo

import (
	"time"

	"github.com/klauspost/cpuid/v2"
)

// CPU identifies the processor.
type CPU struct {
	Vendor        string
	Brand         string
	Family        int
	Model         int
	PhysicalCores int
	LogicalCores  int
	CacheLine     int
	L1DataCache   int // bytes
}

// Uname mirrors uname(2).
type Uname struct {
	Sysname  string
	Release  string
	Version  string
	Nodename string
	Machine  string
}

// User identifies the invoking user. UID is -1 where the platform has no
// numeric user ids.
type User struct {
	UID      int
	Username string
}

// Rusage is the resource usage of the current process.
type Rusage struct {
	Utime   time.Duration
	Stime   time.Duration
	MaxRSS  int64
	MinFlt  int64
	MajFlt  int64
	NSwap   int64
	InBlock int64
	OuBlock int64
}

// Host is the probing interface the writer depends on.
type Host interface {
	CPU() (CPU, bool)
	Uname() (Uname, bool)
	User() (User, bool)
	Rusage() (Rusage, bool)
}

// Probe returns the Host for the running machine.
func Probe() Host { return probe{} }

type probe struct{}

func (probe) CPU() (CPU, bool) {
	c := cpuid.CPU
	if c.VendorString == "" && c.BrandName == "" {
		return CPU{}, false
	}
	return CPU{
		Vendor:        c.VendorString,
		Brand:         c.BrandName,
		Family:        c.Family,
		Model:         c.Model,
		PhysicalCores: c.PhysicalCores,
		LogicalCores:  c.LogicalCores,
		CacheLine:     c.CacheLine,
		L1DataCache:   c.Cache.L1D,
	}, true
}

func (probe) Uname() (Uname, bool) { return readUname() }

func (probe) User() (User, bool) { return currentUser() }

func (probe) Rusage() (Rusage, bool) { return readRusage() }

// Static is a Host with fixed answers. A nil field reports ok == false.
type Static struct {
	CPUInfo    *CPU
	UnameInfo  *Uname
	UserInfo   *User
	RusageInfo *Rusage
}

func (s Static) CPU() (CPU, bool) {
	if s.CPUInfo == nil {
		return CPU{}, false
	}
	return *s.CPUInfo, true
}

func (s Static) Uname() (Uname, bool) {
	if s.UnameInfo == nil {
		return Uname{}, false
	}
	return *s.UnameInfo, true
}

func (s Static) User() (User, bool) {
	if s.UserInfo == nil {
		return User{}, false
	}
	return *s.UserInfo, true
}

func (s Static) Rusage() (Rusage, bool) {
	if s.RusageInfo == nil {
		return Rusage{}, false
	}
	return *s.RusageInfo, true
}
