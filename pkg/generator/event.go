package generator

import (
	"github.com/phasegen/phasegen/pkg/geometry"
	"github.com/phasegen/phasegen/pkg/particle"
	"github.com/phasegen/phasegen/pkg/pool"
)

// Particle is the single particle attached to a vertex: a resolved type
// with the record's kinematics. Charge and Mass are carried next to the
// type because generic ions need them set explicitly.
type Particle struct {
	Type      particle.Type
	Direction geometry.Vec3
	Energy    float64
	Charge    float64
	Mass      float64
}

// Vertex is one emission point: a position, a simulation time, a
// statistical weight and exactly one particle.
type Vertex struct {
	Position geometry.Vec3
	Time     float64
	Weight   float64
	Particle Particle
}

// Event collects the primary vertices of one simulation event. In simple
// mode it holds a single vertex; in until-next-primary mode it holds the
// whole group. The engine only ever appends; the consumer owns the event.
type Event struct {
	vertices []*Vertex
}

// NewEvent creates an empty event.
func NewEvent() *Event {
	return &Event{}
}

// AddVertex appends a vertex to the event.
func (e *Event) AddVertex(v *Vertex) {
	e.vertices = append(e.vertices, v)
}

// Vertices returns the vertices appended so far.
func (e *Event) Vertices() []*Vertex {
	return e.vertices
}

// Len returns the number of vertices in the event.
func (e *Event) Len() int {
	return len(e.vertices)
}

// Pooled event and vertex objects for the replay hot loop.
var (
	eventPool = pool.New(
		func() *Event {
			return &Event{vertices: make([]*Vertex, 0, 8)}
		},
		func(e *Event) {
			for i := range e.vertices {
				e.vertices[i] = nil
			}
			e.vertices = e.vertices[:0]
		},
	)

	vertexPool = pool.New(
		func() *Vertex { return &Vertex{} },
		func(v *Vertex) { *v = Vertex{} },
	)
)

// GetEvent retrieves a cleared event from the pool.
func GetEvent() *Event {
	return eventPool.Get()
}

// PutEvent returns an event and its vertices to their pools.
func PutEvent(e *Event) {
	if e == nil {
		return
	}
	for _, v := range e.vertices {
		vertexPool.Put(v)
	}
	eventPool.Put(e)
}

func getVertex() *Vertex {
	return vertexPool.Get()
}
