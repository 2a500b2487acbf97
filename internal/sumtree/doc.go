// Package sumtree implements the priority index used for weighted sampling.
//
// The tree is a complete binary tree stored in an array, sized to the next
// power of two >= capacity. Leaf i holds priority(i)^alpha; every internal
// node holds the sum of its two children, so the root is the total weight.
//
//	            [ 10 ]
//	        [ 4 ]    [ 6 ]
//	      [1] [3]  [6] [0]     <- leaves (slot 3 unused)
//
// Update and Find are O(log capacity). Parents are recomputed from their
// children rather than adjusted by deltas, which keeps the root free of
// accumulated floating point drift.
package sumtree
