package toolbox

// CostDerivative is dC/da for a single output node, given the node's
// activation a and the expected value y.
type CostDerivative func(a, y float64) float64

// SquaredErrorCost is the per-node cost (a-y)^2.
func SquaredErrorCost(a, y float64) float64 {
	e := a - y
	return e * e
}

// SquaredErrorCostDerivative is the derivative of SquaredErrorCost wrt a.
func SquaredErrorCostDerivative(a, y float64) float64 {
	return 2 * (a - y)
}
