package stats

// Two-tailed Student t critical values at 99.9% confidence for 1..30
// degrees of freedom.
var t999 = []float64{
	636.619, 31.599, 12.924, 8.610, 6.869, 5.959, 5.408, 5.041, 4.781, 4.587,
	4.437, 4.318, 4.221, 4.140, 4.073, 4.015, 3.965, 3.922, 3.883, 3.850,
	3.819, 3.792, 3.768, 3.745, 3.725, 3.707, 3.690, 3.674, 3.659, 3.646,
}

// Beyond 30 degrees of freedom the table is sparse; each entry applies
// from its df up to the next one.
var t999Tail = []struct {
	df int
	t  float64
}{
	{40, 3.551},
	{60, 3.460},
	{120, 3.373},
	{1000, 3.300},
	{100000, 3.291},
}

// tCritical returns the critical value for df degrees of freedom, rounding
// df down to the nearest tabulated entry so the interval never narrows.
func tCritical(df int) float64 {
	if df < 1 {
		df = 1
	}
	if df <= len(t999) {
		return t999[df-1]
	}

	t := t999[len(t999)-1]
	for _, e := range t999Tail {
		if df >= e.df {
			t = e.t
		}
	}

	return t
}
