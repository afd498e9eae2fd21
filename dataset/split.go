package dataset

import "math/rand"

// Split partitions the dataset into train and test subsets by shuffling row
// indices with the given seed and taking the first int(testFraction * n)
// rows as the test set. The same seed and dataset ordering always produce
// the same split.
//
// A testFraction of zero (or less) returns the whole dataset as the train
// set and an empty test set; callers report accuracy as undefined in that
// case.
func (d *Dataset) Split(testFraction float64, seed int64) (train, test *Dataset) {
	n := d.Len()
	train = &Dataset{}
	test = &Dataset{}

	if testFraction <= 0 {
		train.X = d.X
		train.Y = d.Y
		return train, test
	}

	rnd := rand.New(rand.NewSource(seed))
	perm := rnd.Perm(n)
	nTest := int(testFraction * float64(n))

	for i, idx := range perm {
		if i < nTest {
			test.X = append(test.X, d.X[idx])
			test.Y = append(test.Y, d.Y[idx])
		} else {
			train.X = append(train.X, d.X[idx])
			train.Y = append(train.Y, d.Y[idx])
		}
	}
	return train, test
}
