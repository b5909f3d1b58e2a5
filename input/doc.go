// Package input batches asynchronous input callbacks for a guest that polls
// once per tick.
//
// Host callbacks append to a Batch; on each tick the driver calls Flush to
// write the pending records into guest memory as one block. Records share
// a fixed stride so the guest indexes them without parsing:
//
//	Offset  Width  Field
//	─────────────────────────────────────────────
//	0       1      type tag (0 move, 1 down, 2 up, 3 key down, 4 key up)
//	1       1      button (down/up only)
//	4       4      x, or key code (i32)
//	8       4      y (i32, zero for keys)
//
// Only the first pointer move between flushes is kept; one position per
// frame is enough. Button and key events are never dropped or reordered.
//
// Decode and State are the reading side of the same layout, used by hosts
// that consume their own flushes and by tests.
package input
