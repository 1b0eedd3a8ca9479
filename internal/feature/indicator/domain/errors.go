// Package domain はインジケーター計算のドメインエラーを定義します。
package domain

import "errors"

// ErrInsufficientData は必要本数のローソク足がそろっていないことを示します。
// 次のサイクルで再試行される回復可能なエラーです。
var ErrInsufficientData = errors.New("insufficient candle history")
