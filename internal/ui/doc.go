// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through one recap:
//  1. [LibraryListView] : Pick a music library across every reachable server
//  2. [LoadingView] : Follow progress while play history is fetched
//  3. [SummaryView] : Read the recap (totals, top artists/albums/tracks, plays per month)
//  4. [HistoryView] : Browse the individual plays behind the recap
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the WrappedEngine; the final result arrives on a separate
// channel once the progress channel closes.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, h, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
