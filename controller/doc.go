// Package controller drives a grid from live scroll and resize events.
//
// A Controller owns the item list and the viewport. Observers report
// events with OnScroll and OnResize; those only mark the controller
// dirty. Frame recomputes at most once however many events arrived, so a
// burst of scroll events inside one frame collapses into one computation
// at the latest offset. Run calls Frame on a ticker and publishes each
// new ViewModel on Updates.
//
// Lists shorter than Options.Threshold are rendered in full; longer lists
// go through grid.Compute. On the first render the first
// Options.InitialPreload images are preloaded at high priority, and every
// windowed render hands the next row's images to the preloader at low
// priority. With Options.LoadMore set, the controller fetches the next
// page in the background when the viewport nears the end of the list.
package controller
