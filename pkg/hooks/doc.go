// Package hooks runs client-side hooks against an in-memory DOM.
//
// A hook is bound to an element with the phx-hook attribute:
//
//	<ul id="structure" phx-hook="Sortable">...</ul>
//
// A View mounts every hooked element, keeps instances alive across server
// patches, and destroys them when their element leaves the document.
// Hooks talk to the server through their Context:
//
//	func (h *Sidebar) Mounted(ctx *hooks.Context) {
//	    ctx.HandleEvent("sidebar_toggled", func(p hooks.Payload) {
//	        show, _ := p.Bool("show")
//	        ...
//	    })
//	}
//
// # Threading
//
// All hook code runs on the View's Loop. Server pushes and timers are
// posted to it from other goroutines. DOM events must be dispatched by the
// goroutine that drives the loop, either the one calling Loop.Run or the
// one calling Flush/Settle when the View is driven manually.
package hooks
