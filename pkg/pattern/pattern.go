// Package pattern holds the precomputed stone-pattern tables shared by the board
// engine, the simulation policy, and the UCT prior: the 3x3 pattern index, the
// MD2/MD3/MD4/MD5 concentric shell codes, and the nakade vital-point table
// (spec.md 4.2, "Pattern & Hash Tables").
package pattern

import "github.com/igoengine/ishi/pkg/board"

// Code3x3 and its eye/false-eye/territory tables live in pkg/board itself: the
// board engine's own legality test and territory scoring consult the same
// table, and board cannot import pattern without a cycle (pattern already
// imports board for Color). This package re-exports board's table under its
// original names so the simulation policy and the parameter loader keep
// reading it through the pattern API.
type Code3x3 = board.Code3x3

func Encode3x3(nbr [8]board.Color) Code3x3 { return board.Encode3x3(nbr) }

func Symmetries(c Code3x3) []Code3x3 { return board.Symmetries(c) }

func EyeOwner(c Code3x3) board.Color { return board.EyeOwner(c) }

func IsEye(c Code3x3) bool { return board.IsEye(c) }

func IsFalseEye(c Code3x3) bool { return board.IsFalseEye(c) }

func Territory(c Code3x3) board.Color { return board.Territory(c) }

func NumEmptyOrthogonalNeighbors(c Code3x3) int { return board.NumEmptyOrthogonalNeighbors(c) }
