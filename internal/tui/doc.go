// Package tui provides the interactive Bubble Tea browser for paged cloud
// function results.
//
// BrowserModel renders the current page of a pagination.Controller as a
// table and maps keys onto the controller's navigation operations. Fetches
// run as tea.Cmds; their responses come back as messages and are applied
// in Update, so the controller is only mutated on the event loop.
package tui
