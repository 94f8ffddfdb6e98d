// Package textrender rasterizes text overlays into transparent surfaces and
// builds their effect chains.
//
// A surface is sized to the overlay bounds, filled with the background
// colour, and carries the text aligned horizontally and centred vertically.
// Both backends consume the same PNG surface, so text looks identical
// whichever engine renders the export. Fonts are loaded into a FontBook
// before any surface is drawn.
package textrender
