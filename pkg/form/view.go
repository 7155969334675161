package form

import (
	"strings"

	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/media"
	"github.com/goliatone/go-rentadmin/pkg/render"
)

// mediaSpecs orders media errors after the entity fields.
func mediaSpecs() []listing.FieldSpec {
	specs := make([]listing.FieldSpec, 0, len(media.Slots()))
	for _, slot := range media.Slots() {
		specs = append(specs, listing.FieldSpec{Path: string(slot), Label: slotLabel(slot)})
	}
	return specs
}

func slotLabel(slot media.Slot) string {
	return strings.ToUpper(string(slot[:1])) + string(slot[1:])
}

// Heading returns the title shown above the form.
func (c *Controller) Heading() string {
	noun := "Car"
	if c.entityType == listing.TypeDecoration {
		noun = "Decoration"
	}
	if c.mode == ModeEdit {
		return "Edit " + noun
	}
	return "Add " + noun
}

// View builds the summary rendered after each interaction.
func (c *Controller) View() render.FormData {
	c.mu.Lock()
	data := render.FormData{
		Heading: c.Heading(),
		Message: c.message,
	}
	for _, spec := range c.entity.Fields() {
		value, _ := c.entity.Get(spec.Path)
		line := render.FieldLine{Label: spec.Label, Value: value}
		if msgs := c.fieldErrors[spec.Path]; len(msgs) > 0 {
			line.Error = msgs[0]
		}
		data.Fields = append(data.Fields, line)
	}
	slotErrors := make(map[media.Slot]string)
	for _, slot := range media.Slots() {
		if msgs := c.fieldErrors[string(slot)]; len(msgs) > 0 {
			slotErrors[slot] = msgs[0]
		}
	}
	c.mu.Unlock()

	for _, slot := range media.Slots() {
		previews := c.media.Previews(slot)
		data.Media = append(data.Media, render.MediaLine{
			Label:    slotLabel(slot),
			Count:    len(previews),
			Previews: previews,
			Error:    slotErrors[slot],
		})
	}
	return data
}
