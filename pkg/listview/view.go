package listview

import (
	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/render"
)

// View builds the list page view model. imageURL resolves stored image
// references; a nil func leaves them as they are.
func (c *Controller) View(imageURL func(string) string) render.ListData {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := render.ListData{
		Message:    c.banner,
		Page:       c.page,
		TotalPages: c.totalPages,
	}
	if c.entityType == listing.TypeDecoration {
		data.Heading, data.DetailLabel, data.ExtraLabel = "All Decorations List", "Location", "Type of Decoration"
	} else {
		data.Heading, data.DetailLabel, data.ExtraLabel = "All Cars List", "Car Color", "Rental Price"
	}
	for _, item := range c.items {
		row := item.Summary()
		if imageURL != nil && row.Image != "" {
			row.Image = imageURL(row.Image)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}
