// Package render draws a laid-out graph onto a [Canvas].
//
// # Overview
//
// A [Frame] bundles everything one paint needs: the layout result, the
// block content, text metrics, the viewport and the overlay state
// (coverage, current instruction, selection, search token, breakpoints).
// [Pipeline.Draw] culls blocks and edges outside the viewport, then paints
// each visible block in a fixed layer order, back to front:
//
//  1. base fill
//  2. coverage / trace
//  3. current instruction
//  4. selection
//  5. search token
//  6. breakpoint
//  7. outline and text
//
// When a text row would be drawn shorter than [Pipeline.MinCharHeight]
// pixels, only outlines are drawn.
//
// # Canvases
//
// Canvases work in screen coordinates. Two implementations live in
// subpackages:
//
//   - [raster]: PNG and JPEG through git.sr.ht/~sbinet/gg
//   - [vector]: SVG through github.com/ajstarks/svgo
//
// [Recorder] keeps the drawing operations in memory for tests.
//
// # Node Content
//
// Block text is drawn by a [NodeDrawer]. [DrawInstructions] paints a title
// row followed by syntax-highlighted lines; [DrawCentered] paints a single
// centred label for generic graphs.
//
// [raster]: github.com/matzehuels/disgraph/pkg/render/raster
// [vector]: github.com/matzehuels/disgraph/pkg/render/vector
package render
