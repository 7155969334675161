package media

import (
	"fmt"

	"github.com/goliatone/go-rentadmin/pkg/api"
)

const bytesPerMB = 1024 * 1024

// Slot names a media field of a listing.
type Slot string

const (
	SlotPhotos Slot = "photos"
	SlotVideos Slot = "videos"
)

// Slots returns every media slot.
func Slots() []Slot {
	return []Slot{SlotPhotos, SlotVideos}
}

// ParseSlot validates raw.
func ParseSlot(raw string) (Slot, error) {
	switch Slot(raw) {
	case SlotPhotos, SlotVideos:
		return Slot(raw), nil
	default:
		return "", fmt.Errorf("media: unknown slot %q", raw)
	}
}

// Policy bounds a selection batch. MaxSizeMB is the per-file limit shown to
// users; the enforced bound is the batch total against MaxSizeMB*MaxCount.
type Policy struct {
	Noun      string
	MaxCount  int
	MaxSizeMB int
}

var (
	// PhotoPolicy allows five photos of 5MB.
	PhotoPolicy = Policy{Noun: "photo", MaxCount: 5, MaxSizeMB: 5}
	// VideoPolicy allows three videos of 60MB.
	VideoPolicy = Policy{Noun: "video", MaxCount: 3, MaxSizeMB: 60}
)

// PolicyFor returns the default policy for slot.
func PolicyFor(slot Slot) Policy {
	if slot == SlotVideos {
		return VideoPolicy
	}
	return PhotoPolicy
}

// Reason says which bound a batch broke.
type Reason string

const (
	ReasonCount Reason = "count"
	ReasonSize  Reason = "size"
)

// PolicyViolation rejects a whole selection batch.
type PolicyViolation struct {
	Policy Policy
	Reason Reason
	Count  int
	SizeMB float64
}

func (v *PolicyViolation) Error() string {
	if v.Reason == ReasonCount {
		return fmt.Sprintf("You can upload a maximum of %d %ss.", v.Policy.MaxCount, v.Policy.Noun)
	}
	return fmt.Sprintf("Each %s must be less than %d MB.", v.Policy.Noun, v.Policy.MaxSizeMB)
}

// ErrorKind classifies the violation for controllers.
func (v *PolicyViolation) ErrorKind() api.Kind {
	return api.KindMediaPolicy
}

// Check validates a batch. The count bound is checked first.
func (p Policy) Check(files []File) error {
	if len(files) > p.MaxCount {
		return &PolicyViolation{Policy: p, Reason: ReasonCount, Count: len(files)}
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	sizeMB := float64(total) / bytesPerMB
	if sizeMB > float64(p.MaxSizeMB*p.MaxCount) {
		return &PolicyViolation{Policy: p, Reason: ReasonSize, Count: len(files), SizeMB: sizeMB}
	}
	return nil
}
