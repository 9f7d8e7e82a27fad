// Package geom holds the small vector and tensor primitives used by the
// feature extractor and the nearest-neighbour weighting.
//
// Responsibilities: 3-vector arithmetic, 3x3 symmetric accumulation and
// eigen decomposition of the event-shape tensor.
// Key types: Vec3, SymMat3, Eigen3.
//
// No I/O and no domain types are allowed in this package.
package geom
