package spreadsheet

import (
	"fmt"
	"testing"
)

func BenchmarkLargeCellPopulation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		r := NewRunnableGrid(Size{Rows: 100, Cols: 26}, func(string) {})
		for row := 1; row <= 100; row++ {
			for col := 0; col < 26; col++ {
				r.Set(fmt.Sprintf("%s%d", ColumnName(col), row), fmt.Sprint(row*(col+1)))
			}
		}
		if err := r.Error(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFormulaDependencyChain(b *testing.B) {
	r := NewRunnableGrid(Size{Rows: 100, Cols: 1}, func(string) {}).Set("A1", "1")
	for i := 2; i <= 100; i++ {
		r.Set(fmt.Sprintf("A%d", i), fmt.Sprintf("=A%d+1", i-1))
	}
	r.View("A100")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Set("A1", fmt.Sprint(i))
	}
	if err := r.Error(); err != nil {
		b.Fatal(err)
	}
}

func BenchmarkWideDependencyFanOut(b *testing.B) {
	r := NewRunnableGrid(Size{Rows: 500, Cols: 2}, func(string) {}).Set("A1", "100")
	for i := 2; i <= 500; i++ {
		address := fmt.Sprintf("B%d", i)
		r.Set(address, "=$A$1*2").View(address)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Set("A1", fmt.Sprint(i))
	}
}

func BenchmarkColumnMove(b *testing.B) {
	r := NewRunnableGrid(Size{Rows: 50, Cols: 10}, func(string) {})
	for row := 1; row <= 50; row++ {
		r.Set(fmt.Sprintf("A%d", row), fmt.Sprint(row))
		r.Set(fmt.Sprintf("B%d", row), fmt.Sprintf("=A%d*2", row))
		r.Set(fmt.Sprintf("C%d", row), fmt.Sprintf("=$A$%d+B%d", row, row))
	}
	r.Grid().Snapshot()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.MoveColumnAfter("A", "J")
	}
	if err := r.Error(); err != nil {
		b.Fatal(err)
	}
}

func BenchmarkCircularReferenceDetection(b *testing.B) {
	r := NewRunnableGrid(Size{Rows: 100, Cols: 1}, func(string) {})
	for i := 1; i < 100; i++ {
		r.Set(fmt.Sprintf("A%d", i), fmt.Sprintf("=A%d", i+1))
	}
	r.View("A1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Set("A100", "=A1")
		r.Set("A100", "1")
	}
}
