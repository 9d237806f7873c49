package jobexe

import (
	"fmt"
)

// Resources is an amount of compute, memory and disk.
// It is used both as a requirement of a task and as an allocation
// the scheduler granted to a job execution.
//
// Resources is a value. Once created, it should not be changed.
// Arithmetic methods return a new Resources.
type Resources struct {
	// CPUs is number of cpus.
	CPUs float64

	// Mem is memory in MiB.
	Mem float64

	// DiskIn is disk space in MiB for input files.
	DiskIn float64

	// DiskOut is disk space in MiB for output files.
	DiskOut float64

	// DiskTotal is the whole disk space in MiB.
	// When it is 0, DiskIn + DiskOut will be used for the total.
	DiskTotal float64
}

// NewResources creates a new Resources.
// Negative values are corrected to 0.
func NewResources(cpus, mem, diskIn, diskOut, diskTotal float64) Resources {
	return Resources{
		CPUs:      nonNegative(cpus),
		Mem:       nonNegative(mem),
		DiskIn:    nonNegative(diskIn),
		DiskOut:   nonNegative(diskOut),
		DiskTotal: nonNegative(diskTotal),
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Disk returns aggregated disk space of the resources.
func (r Resources) Disk() float64 {
	if r.DiskTotal != 0 {
		return r.DiskTotal
	}
	return r.DiskIn + r.DiskOut
}

// IsZero reports whether r doesn't have any resource.
func (r Resources) IsZero() bool {
	return r == Resources{}
}

// Equal reports whether r and o are having same amount of every resource.
func (r Resources) Equal(o Resources) bool {
	return r == o
}

// Add returns sum of r and o.
func (r Resources) Add(o Resources) Resources {
	return Resources{
		CPUs:      r.CPUs + o.CPUs,
		Mem:       r.Mem + o.Mem,
		DiskIn:    r.DiskIn + o.DiskIn,
		DiskOut:   r.DiskOut + o.DiskOut,
		DiskTotal: r.Disk() + o.Disk(),
	}
}

// Subtract returns r subtracted by o.
// A resource that would go below 0 will be 0.
// When the disk is used up, DiskIn and DiskOut are 0 as well,
// or Disk would fall back to their sum.
func (r Resources) Subtract(o Resources) Resources {
	s := NewResources(
		r.CPUs-o.CPUs,
		r.Mem-o.Mem,
		r.DiskIn-o.DiskIn,
		r.DiskOut-o.DiskOut,
		r.Disk()-o.Disk(),
	)
	if s.DiskTotal == 0 {
		s.DiskIn = 0
		s.DiskOut = 0
	}
	return s
}

// IsSufficientToMeet reports whether r has enough resources for req.
// Disk is compared with their aggregated values.
func (r Resources) IsSufficientToMeet(req Resources) bool {
	return r.CPUs >= req.CPUs && r.Mem >= req.Mem && r.Disk() >= req.Disk()
}

// String represents Resources as string.
func (r Resources) String() string {
	return fmt.Sprintf("cpus=%.2f mem=%.2f disk=%.2f", r.CPUs, r.Mem, r.Disk())
}
