// Package augment multiplies training tiles with random geometric and
// radiometric transforms, and optionally with Fourier domain adaptation
// (FDA) towards reference tiles.
//
// One augmentation applies, in order: brightness and contrast on the image
// bands, a random number of quarter turns, a resize by a factor in
// [ScaleMin, ScaleMax] with probability ScaleProb, a random crop back to the
// tile extent and, with probability FlipProb, a vertical, horizontal or
// double flip. Image and mask share the geometry; the mask is resampled by
// nearest neighbour so class values survive.
//
// Outputs are written next to their inputs as <stem>_aug<n>.tif and, for
// FDA, <stem>_aug_fda<n>.tif paired with an unmodified copy of the mask.
package augment
