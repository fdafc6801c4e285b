package game

import "time"

type ticker struct{}

func (t *ticker) Create(duration time.Duration) (<-chan time.Time, func()) {
	tk := time.NewTicker(duration)
	return tk.C, tk.Stop
}

func NewTickerGen() *ticker {
	return &ticker{}
}
