// Package window builds strided sliding-window views over flat row-major
// buffers.
//
// Rolling turns an N-dimensional array into a grid of windows without
// copying: each grid cell addresses the same memory as the source through
// stride arithmetic. Steps larger than one skip window positions, so a step
// equal to the window size yields disjoint tiles and a smaller step yields
// overlapping ones.
//
// Views are validated against the length of their backing buffer when they
// are built, so a View never addresses memory outside it. They are read-only
// by contract; call Copy to obtain an owned slice.
package window
