// Package listing defines the car and decoration listing entities edited by
// the admin client, together with their field table.
//
// Every editable field is addressed by a dotted path ("title",
// "owner.phone", "additionalAmenities"). Entity.Set changes exactly the
// addressed field: owner paths only touch the matching Owner member and list
// fields are split from ", "-separated text. Media references and the server
// identifier are read-only through this interface.
package listing
