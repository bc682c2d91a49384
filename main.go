package main

import (
	"flag"
	"log"

	"github.com/paulmach/orb"
)

func main() {
	configPath := flag.String("config", "", "JSON config overriding the defaults")
	graphPath := flag.String("graph", "", "graph definition JSON (omit for the built-in demo map)")
	startNode := flag.Int("start", 0, "start node ID")
	goalNode := flag.Int("goal", -1, "goal node ID (default: highest node ID)")
	maxTicks := flag.Int("max-ticks", 20000, "abort after this many control ticks")
	flag.Parse()

	log.Println("========================================")
	log.Println("🚗 Car Navigation Stack")
	log.Println("========================================")

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
		log.Printf("Loaded config from %s\n", *configPath)
	}

	var (
		graph *Graph
		world *SimWorld
	)
	if *graphPath != "" {
		g, err := LoadGraph(*graphPath)
		if err != nil {
			log.Fatal(err)
		}
		graph = g
		startAt, ok := graph.CoordinateOf(*startNode)
		if !ok {
			log.Fatalf("start node %d not in graph", *startNode)
		}
		world = NewSimWorld(cfg.Sim, cfg.Loop.TickSeconds, startAt, 0)
		log.Printf("Loaded graph from %s: %d nodes\n", *graphPath, len(graph.Nodes))
	} else {
		graph, world = demoWorld(cfg)
		log.Printf("Using built-in demo map: %d nodes, one parked obstacle\n", len(graph.Nodes))
	}

	goal := *goalNode
	if goal < 0 {
		for id := range graph.Nodes {
			if id > goal {
				goal = id
			}
		}
	}

	log.Printf("Route: node %d -> node %d\n", *startNode, goal)
	log.Println("========================================")

	loop := NewControlLoop(graph, cfg, world.Collaborators(), *startNode, goal)

	reportEvery := int(1 / cfg.Loop.TickSeconds)
	if reportEvery < 1 {
		reportEvery = 1
	}

	lastState := loop.State()
	for i := 0; i < *maxTicks && !IsTerminal(loop.State()); i++ {
		res := loop.Tick()
		world.Step()

		if res.State != lastState {
			log.Printf("State: %s -> %s\n", lastState, res.State)
			lastState = res.State
		}
		if i%reportEvery == 0 {
			pose, _ := world.VehicleState()
			log.Printf("   t=%6.1fs  pos=(%7.2f, %7.2f)  speed=%.2f m/s  %s\n",
				float64(i)*cfg.Loop.TickSeconds, pose.Position.X(), pose.Position.Y(), pose.Speed, res.Event.Classification)
		}
	}

	log.Println("========================================")
	switch loop.State() {
	case StateArrived:
		log.Println("✅ The vehicle has reached the destination")
	case StateFailed:
		log.Println("❌ Navigation failed: no route to the destination")
	default:
		log.Printf("⚠️  Stopped after %d ticks in state %s\n", *maxTicks, loop.State())
	}
	log.Println("========================================")
}

// demoWorld builds a small grid map with one obstacle parked on the
// direct route, so the stock binary exercises the full plan / block /
// replan cycle.
func demoWorld(cfg Config) (*Graph, *SimWorld) {
	g := NewGraph()

	// 4x4 grid, 30 m spacing, node ID = row*4 + col.
	const spacing = 30.0
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			g.AddNode(row*4+col, orb.Point{float64(col) * spacing, float64(row) * spacing})
		}
	}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			id := row*4 + col
			if col+1 < 4 {
				mustAddEdge(g, id, id+1)
			}
			if row+1 < 4 {
				mustAddEdge(g, id, id+4)
			}
		}
	}

	world := NewSimWorld(cfg.Sim, cfg.Loop.TickSeconds, orb.Point{0, 0}, 0)
	// Parked across the first horizontal leg.
	world.AddObstacle(Obstacle{At: orb.Point{41, 0}, Radius: 2, Class: "car"})
	return g, world
}

func mustAddEdge(g *Graph, from, to int) {
	if err := g.AddEdge(from, to, edgeLength(g, from, to), false); err != nil {
		log.Fatal(err)
	}
}

func edgeLength(g *Graph, from, to int) float64 {
	a, _ := g.CoordinateOf(from)
	b, _ := g.CoordinateOf(to)
	return PathLength([]orb.Point{a, b})
}
