package analyzer

import (
	"container/heap"
	"context"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// sourceChunkSize fixes how sources are grouped for parallel accumulation.
// It does not depend on the worker count, so sums are identical however
// many workers run.
const sourceChunkSize = 32

// distanceEpsilon decides equal path lengths on weighted graphs
const distanceEpsilon = 1e-12

// CentralityScores are per-node accumulations indexed like the graph's nodes
type CentralityScores struct {
	Mode        domain.CentralityMode
	Sources     int
	Approximate bool
	Betweenness []float64
	Closeness   []float64
}

// CentralityStrategy computes betweenness and closeness for a graph
type CentralityStrategy interface {
	Name() domain.CentralityMode
	Compute(ctx context.Context, g *DependencyGraph) (*CentralityScores, error)
}

// ExactCentrality accumulates shortest paths from every source
type ExactCentrality struct {
	Weighted bool
	Workers  int
}

// Name returns the strategy mode
func (s *ExactCentrality) Name() domain.CentralityMode { return domain.CentralityModeExact }

// Compute runs Brandes' algorithm from all sources
func (s *ExactCentrality) Compute(ctx context.Context, g *DependencyGraph) (*CentralityScores, error) {
	n := g.NodeCount()
	sources := make([]int, n)
	for i := range sources {
		sources[i] = i
	}
	acc, err := accumulate(ctx, g, sources, s.Weighted, s.Workers)
	if err != nil {
		return nil, err
	}
	return &CentralityScores{
		Mode:        domain.CentralityModeExact,
		Sources:     n,
		Betweenness: acc.betweenness,
		Closeness:   acc.closeness(sources),
	}, nil
}

// SampledCentrality accumulates shortest paths from a seeded sample of
// sources and scales betweenness by n/k
type SampledCentrality struct {
	Weighted   bool
	Workers    int
	SampleRate float64
	MinSamples int
	Seed       int64
}

// Name returns the strategy mode
func (s *SampledCentrality) Name() domain.CentralityMode { return domain.CentralityModeSampled }

// SampleSize returns k = max(min_samples, ceil(rate*n)) capped at n
func (s *SampledCentrality) SampleSize(n int) int {
	k := int(math.Ceil(s.SampleRate * float64(n)))
	if k < s.MinSamples {
		k = s.MinSamples
	}
	if k > n {
		k = n
	}
	return k
}

// Compute runs Brandes' algorithm from the sampled sources
func (s *SampledCentrality) Compute(ctx context.Context, g *DependencyGraph) (*CentralityScores, error) {
	n := g.NodeCount()
	k := s.SampleSize(n)

	rng := rand.New(rand.NewSource(s.Seed))
	sources := rng.Perm(n)[:k]

	acc, err := accumulate(ctx, g, sources, s.Weighted, s.Workers)
	if err != nil {
		return nil, err
	}
	if k > 0 {
		scale := float64(n) / float64(k)
		for i := range acc.betweenness {
			acc.betweenness[i] *= scale
		}
	}
	return &CentralityScores{
		Mode:        domain.CentralityModeSampled,
		Sources:     k,
		Approximate: k < n,
		Betweenness: acc.betweenness,
		Closeness:   acc.closeness(sources),
	}, nil
}

// CentralityPolicy chooses exact computation up to Ceiling nodes and
// sampling above it
type CentralityPolicy struct {
	Ceiling    int
	SampleRate float64
	MinSamples int
	Seed       int64
	Weighted   bool
	Workers    int
}

// Select returns the strategy for a graph of n nodes
func (p CentralityPolicy) Select(n int) CentralityStrategy {
	if n <= p.Ceiling {
		return &ExactCentrality{Weighted: p.Weighted, Workers: p.Workers}
	}
	return &SampledCentrality{
		Weighted:   p.Weighted,
		Workers:    p.Workers,
		SampleRate: p.SampleRate,
		MinSamples: p.MinSamples,
		Seed:       p.Seed,
	}
}

// accumulation holds raw Brandes sums
type accumulation struct {
	betweenness []float64
	distSum     []float64
	reach       []int
}

func newAccumulation(n int) *accumulation {
	return &accumulation{
		betweenness: make([]float64, n),
		distSum:     make([]float64, n),
		reach:       make([]int, n),
	}
}

func (a *accumulation) add(other *accumulation) {
	for i := range a.betweenness {
		a.betweenness[i] += other.betweenness[i]
		a.distSum[i] += other.distSum[i]
		a.reach[i] += other.reach[i]
	}
}

// closeness is incoming Wasserman-Faust closeness: (r/considered)*(r/S)
// where r sources reach the node at total distance S. A node never counts
// itself, so considered is len(sources)-1 for nodes in the source set and
// len(sources) for the rest.
func (a *accumulation) closeness(sources []int) []float64 {
	out := make([]float64, len(a.reach))
	inSources := make([]bool, len(a.reach))
	for _, s := range sources {
		inSources[s] = true
	}
	for i, r := range a.reach {
		if r == 0 || a.distSum[i] == 0 {
			continue
		}
		considered := len(sources)
		if inSources[i] {
			considered--
		}
		if considered <= 0 {
			continue
		}
		rf := float64(r)
		out[i] = (rf / float64(considered)) * (rf / a.distSum[i])
	}
	return out
}

// accumulate splits sources into fixed chunks, runs them on a bounded
// errgroup and sums chunk results in chunk order
func accumulate(ctx context.Context, g *DependencyGraph, sources []int, weighted bool, workers int) (*accumulation, error) {
	n := g.NodeCount()
	total := newAccumulation(n)
	if n == 0 || len(sources) == 0 {
		return total, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	chunks := (len(sources) + sourceChunkSize - 1) / sourceChunkSize
	results := make([]*accumulation, chunks)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		start := c * sourceChunkSize
		end := min(start+sourceChunkSize, len(sources))
		eg.Go(func() error {
			acc := newAccumulation(n)
			w := newBrandesWorkspace(n)
			for _, s := range sources[start:end] {
				if err := egCtx.Err(); err != nil {
					return err
				}
				if weighted {
					w.dijkstra(g, s)
				} else {
					w.bfs(g, s)
				}
				w.collect(s, acc)
			}
			results[c] = acc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, acc := range results {
		total.add(acc)
	}
	return total, nil
}

// brandesWorkspace is per-goroutine scratch space for one source at a time
type brandesWorkspace struct {
	order []int // nodes in non-decreasing distance from the source
	pred  [][]int
	sigma []float64
	dist  []float64
	delta []float64
	seen  []bool
}

func newBrandesWorkspace(n int) *brandesWorkspace {
	return &brandesWorkspace{
		order: make([]int, 0, n),
		pred:  make([][]int, n),
		sigma: make([]float64, n),
		dist:  make([]float64, n),
		delta: make([]float64, n),
		seen:  make([]bool, n),
	}
}

func (w *brandesWorkspace) reset(s int) {
	w.order = w.order[:0]
	for i := range w.sigma {
		w.pred[i] = w.pred[i][:0]
		w.sigma[i] = 0
		w.dist[i] = -1
		w.delta[i] = 0
		w.seen[i] = false
	}
	w.sigma[s] = 1
	w.dist[s] = 0
}

func (w *brandesWorkspace) bfs(g *DependencyGraph, s int) {
	w.reset(s)
	queue := []int{s}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		w.order = append(w.order, v)
		for _, a := range g.out[v] {
			if w.dist[a.to] < 0 {
				w.dist[a.to] = w.dist[v] + 1
				queue = append(queue, a.to)
			}
			if w.dist[a.to] == w.dist[v]+1 {
				w.sigma[a.to] += w.sigma[v]
				w.pred[a.to] = append(w.pred[a.to], v)
			}
		}
	}
}

func (w *brandesWorkspace) dijkstra(g *DependencyGraph, s int) {
	w.reset(s)
	pq := &distanceQueue{{node: s, dist: 0}}
	for pq.Len() > 0 {
		item := heap.Pop(pq).(queueItem)
		v := item.node
		if w.seen[v] || item.dist > w.dist[v]+distanceEpsilon {
			continue
		}
		w.seen[v] = true
		w.order = append(w.order, v)
		for _, a := range g.out[v] {
			alt := w.dist[v] + a.weight
			switch {
			case w.dist[a.to] < 0 || alt < w.dist[a.to]-distanceEpsilon:
				w.dist[a.to] = alt
				w.sigma[a.to] = w.sigma[v]
				w.pred[a.to] = append(w.pred[a.to][:0], v)
				heap.Push(pq, queueItem{node: a.to, dist: alt})
			case math.Abs(alt-w.dist[a.to]) <= distanceEpsilon && !w.seen[a.to]:
				w.sigma[a.to] += w.sigma[v]
				w.pred[a.to] = append(w.pred[a.to], v)
			}
		}
	}
}

// collect back-propagates dependencies from the last traversal into acc
func (w *brandesWorkspace) collect(s int, acc *accumulation) {
	for i := len(w.order) - 1; i >= 0; i-- {
		node := w.order[i]
		for _, v := range w.pred[node] {
			w.delta[v] += w.sigma[v] / w.sigma[node] * (1 + w.delta[node])
		}
		if node != s {
			acc.betweenness[node] += w.delta[node]
			acc.distSum[node] += w.dist[node]
			acc.reach[node]++
		}
	}
}

type queueItem struct {
	node int
	dist float64
}

// distanceQueue is a min-heap ordered by distance, then node index
type distanceQueue []queueItem

func (q distanceQueue) Len() int { return len(q) }
func (q distanceQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q distanceQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *distanceQueue) Push(x any)   { *q = append(*q, x.(queueItem)) }
func (q *distanceQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}
