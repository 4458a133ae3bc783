package toolbox

import "gonum.org/v1/gonum/floats"

// MeanSquaredError is the mean over data of the squared error summed over
// the output nodes, i.e. the average SquaredErrorCost of one datapoint.
func MeanSquaredError(net *Network, data []Datapoint) float64 {
	if len(data) == 0 {
		return 0
	}
	var loss float64
	for _, dp := range data {
		d := floats.Distance(net.Run(dp.Input), dp.Output, 2)
		loss += d * d
	}
	return loss / float64(len(data))
}

// Accuracy is the fraction of data whose highest output matches the highest
// entry of the one-hot target.
func Accuracy(net *Network, data []Datapoint) float64 {
	if len(data) == 0 {
		return 0
	}
	correct := 0
	for _, dp := range data {
		if floats.MaxIdx(net.Run(dp.Input)) == floats.MaxIdx(dp.Output) {
			correct++
		}
	}
	return float64(correct) / float64(len(data))
}
