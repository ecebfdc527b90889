package mapdat

import (
	"sync"
	"testing"
)

func TestMapGetClamps(t *testing.T) {
	m := NewMap(3, 2)
	for i := range m.HeightMap {
		m.HeightMap[i] = Height(i)
	}
	m.IsWater.Set(5)

	tests := []struct {
		x, y  int
		want  Height
		water bool
	}{
		{0, 0, 0, false},
		{2, 1, 5, true},
		{-4, 0, 0, false},
		{10, 0, 2, false},
		{1, 99, 4, false},
		{99, 99, 5, true},
		{-1, -1, 0, false},
	}
	for _, tt := range tests {
		p := m.Get(tt.x, tt.y)
		if p.Height != tt.want || p.IsWater != tt.water {
			t.Errorf("Get(%d, %d) = %+v, want height %d water %v", tt.x, tt.y, p, tt.want, tt.water)
		}
	}
}

func TestGetEmptyMapPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Get on a 0x0 map did not panic")
		}
	}()
	NewMap(0, 0).Get(0, 0)
}

func TestHeightArithmetic(t *testing.T) {
	if got := Height(100).Add(-30); got != 70 {
		t.Errorf("Add = %d, want 70", got)
	}
	if got := Height(32767).Add(1); got != -32768 {
		t.Errorf("Add overflow = %d, want -32768", got)
	}
	if got := Height(-7).Div(2); got != -3 {
		t.Errorf("Div = %d, want -3", got)
	}
	sum := Height(10).Add(11).Add(12).Add(13)
	if got := sum.Div(4); got != 11 {
		t.Errorf("average = %d, want 11", got)
	}
}

func TestSetWaterAtomicSharedWords(t *testing.T) {
	// 10x10 map: every row of ten bits straddles word boundaries somewhere.
	m := NewMap(10, 10)
	var wg sync.WaitGroup
	for row := 0; row < 10; row++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			for x := 0; x < 10; x += 2 {
				m.SetWaterAtomic(x + row*10)
			}
		}(row)
	}
	wg.Wait()

	if got := m.IsWater.Count(); got != 50 {
		t.Fatalf("Count = %d, want 50", got)
	}
	for i := 0; i < 100; i++ {
		if m.IsWater.Test(uint(i)) != (i%2 == 0) {
			t.Errorf("bit %d = %v", i, m.IsWater.Test(uint(i)))
		}
	}
}
