// Package ui implements a terminal job watcher using bubbletea's Elm architecture.
//
// The watcher polls one organize job through a [JobSource] and moves through two views:
//  1. [WatchView] : spinner, stage, progress bar and discovered genres while the job runs
//  2. [ResultView] : a list of the created playlists once the job completes
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving poll results via the Msg union type.
// Transient poll errors are shown and retried; an unknown job or an expired session stops the watcher.
// Quitting while the job runs only detaches, the job keeps going on the server.
package ui
