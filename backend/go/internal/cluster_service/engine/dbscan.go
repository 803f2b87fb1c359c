package engine

// Noise is the label of points that belong to no cluster.
const Noise = -1

const unvisited = -2

// DBSCAN labels each row of a precomputed distance matrix. A point is a core
// point when at least minSamples points, itself included, lie within eps.
// Clusters grow from core points in index order, so equal input always gives
// equal labels. Labels are 0..k-1 in order of discovery; noise is Noise.
func DBSCAN(dist [][]float64, eps float64, minSamples int) []int {
	n := len(dist)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	neighbours := func(p int) []int {
		var out []int
		for q := 0; q < n; q++ {
			if dist[p][q] <= eps {
				out = append(out, q)
			}
		}
		return out
	}

	next := 0
	for p := 0; p < n; p++ {
		if labels[p] != unvisited {
			continue
		}
		seeds := neighbours(p)
		if len(seeds) < minSamples {
			labels[p] = Noise
			continue
		}

		cluster := next
		next++
		labels[p] = cluster
		queue := append([]int(nil), seeds...)
		for len(queue) > 0 {
			q := queue[0]
			queue = queue[1:]
			if labels[q] == Noise {
				// border point reached from a core point
				labels[q] = cluster
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = cluster
			if nq := neighbours(q); len(nq) >= minSamples {
				queue = append(queue, nq...)
			}
		}
	}
	return labels
}

// Groups splits labels into member index lists per cluster, ordered by label,
// plus the noise indices.
func Groups(labels []int) (clusters [][]int, noise []int) {
	max := -1
	for _, l := range labels {
		if l > max {
			max = l
		}
	}
	clusters = make([][]int, max+1)
	for i, l := range labels {
		if l == Noise {
			noise = append(noise, i)
			continue
		}
		clusters[l] = append(clusters[l], i)
	}
	return clusters, noise
}
