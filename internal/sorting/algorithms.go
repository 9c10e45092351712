package sorting

import "slices"

// Each algorithm sorts a private copy of items and leaves the input slice
// untouched. cmp returns a negative number when a orders before b.

// QuickSort is recursive quicksort with the Lomuto partition scheme and the
// last element of each range as pivot. Already sorted input hits the O(n²)
// worst case; the pivot choice is deliberately not randomized.
func QuickSort[T any](items []T, cmp func(a, b T) int) []T {
	out := slices.Clone(items)
	quickSort(out, 0, len(out)-1, cmp)
	return out
}

func quickSort[T any](a []T, lo, hi int, cmp func(a, b T) int) {
	if lo >= hi {
		return
	}
	p := partition(a, lo, hi, cmp)
	quickSort(a, lo, p-1, cmp)
	quickSort(a, p+1, hi, cmp)
}

func partition[T any](a []T, lo, hi int, cmp func(a, b T) int) int {
	pivot := a[hi]
	i := lo - 1
	for j := lo; j < hi; j++ {
		if cmp(a[j], pivot) <= 0 {
			i++
			a[i], a[j] = a[j], a[i]
		}
	}
	a[i+1], a[hi] = a[hi], a[i+1]
	return i + 1
}

// MergeSort is top-down merge sort. Ties take the left element first, which
// makes it stable.
func MergeSort[T any](items []T, cmp func(a, b T) int) []T {
	if len(items) <= 1 {
		return slices.Clone(items)
	}
	mid := len(items) / 2
	return merge(MergeSort(items[:mid], cmp), MergeSort(items[mid:], cmp), cmp)
}

func merge[T any](left, right []T, cmp func(a, b T) int) []T {
	out := make([]T, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if cmp(left[i], right[j]) <= 0 {
			out = append(out, left[i])
			i++
		} else {
			out = append(out, right[j])
			j++
		}
	}
	out = append(out, left[i:]...)
	return append(out, right[j:]...)
}

// HeapSort builds a max-heap in place and repeatedly moves the root to the
// end of the unsorted range. Not stable.
func HeapSort[T any](items []T, cmp func(a, b T) int) []T {
	out := slices.Clone(items)
	n := len(out)
	for i := n/2 - 1; i >= 0; i-- {
		siftDown(out, i, n, cmp)
	}
	for end := n - 1; end > 0; end-- {
		out[0], out[end] = out[end], out[0]
		siftDown(out, 0, end, cmp)
	}
	return out
}

func siftDown[T any](a []T, root, n int, cmp func(a, b T) int) {
	for {
		largest := root
		left, right := 2*root+1, 2*root+2
		if left < n && cmp(a[left], a[largest]) > 0 {
			largest = left
		}
		if right < n && cmp(a[right], a[largest]) > 0 {
			largest = right
		}
		if largest == root {
			return
		}
		a[root], a[largest] = a[largest], a[root]
		root = largest
	}
}

// BubbleSort swaps adjacent out-of-order pairs and stops after a pass with
// no swaps. Stable; O(n) on sorted input.
func BubbleSort[T any](items []T, cmp func(a, b T) int) []T {
	out := slices.Clone(items)
	n := len(out)
	for i := 0; i < n-1; i++ {
		swapped := false
		for j := 0; j < n-1-i; j++ {
			if cmp(out[j], out[j+1]) > 0 {
				out[j], out[j+1] = out[j+1], out[j]
				swapped = true
			}
		}
		if !swapped {
			break
		}
	}
	return out
}
