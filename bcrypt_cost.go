//go:build !race

package registry

func passwordHashCost() int {
	return 12
}
