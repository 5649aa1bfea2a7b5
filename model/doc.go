// Package model provides the ShapeTree Model: the normalized, format-agnostic
// representation of a slide's visual elements.
//
// A [Slide] holds its [Element] values in the source document's draw order
// (z-order). Every element carries a closed [Kind] and exactly one payload
// matching that kind:
//
//   - [KindText] - ordered [Paragraph] values made of formatted [Run] values
//   - [KindTable] - a [Table] grid of [Cell] values
//   - [KindChart] - a [Chart] with categories and [Series]
//   - [KindPicture] - a [Picture] reference (no pixel data)
//   - [KindGeneric] - a [Fill] descriptor only
//
// # Paragraph text
//
// A paragraph's Text is the concatenation of its runs' texts in order. The
// substitution engine matches on whole-paragraph text, so code that edits runs
// must call [Paragraph.Sync] to keep the two consistent.
//
// # Lifecycle
//
// Models are produced once at ingestion and treated as immutable reference
// data. Callers that need to edit a model work on [Slide.Clone].
//
// # Geometry
//
// Positions and sizes are kept verbatim in EMUs (English Metric Units,
// 914400 per inch). [Geometry] offers conversions to points and inches.
package model
