package fixed

var (
	Zero = FromInt(0, 0)
	One  = FromInt(1, 0)
	Two  = FromInt(2, 0)

	PointFive = FromInt(5, 1)

	Fifty   = FromInt(50, 0)
	Hundred = FromInt(100, 0)
)
