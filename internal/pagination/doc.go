// Package pagination holds page-navigation state for a view over a paged
// cloud function.
//
// A Controller owns page size and current page, builds the request for the
// current page, and derives the total page count from the record count the
// server reports. It follows the Bubble Tea model: every mutation that
// changes the request returns a tea.Cmd that runs the query, and the
// resulting ResponseMsg is applied in Update on the owner's event loop.
// The controller is not safe for concurrent use.
package pagination
