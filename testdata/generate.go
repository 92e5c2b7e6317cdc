package main

import (
	"log"
	"math/rand/v2"
	"os"

	"github.com/parquet-go/parquet-go"
)

type Collision struct {
	MCCollision int32   `parquet:"mcCollision"`
	PosZ        float32 `parquet:"posZ"`
	Mult        int32   `parquet:"mult"`
}

type MCCollision struct {
	PosZ   float32 `parquet:"posZ"`
	Impact float32 `parquet:"impactParameter"`
}

type Track struct {
	Collision int32     `parquet:"collision"`
	Pt        float32   `parquet:"pt"`
	Eta       float32   `parquet:"eta"`
	Phi       float32   `parquet:"phi"`
	TrackType int32     `parquet:"trackType"`
	Flags     int32     `parquet:"flags"`
	Cov       []float32 `parquet:"cov"`
}

func write[T any](name string, rows []T) {
	file, err := os.Create(name)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		log.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("Generated %s with %d rows", name, len(rows))
}

func main() {
	rng := rand.New(rand.NewPCG(1, 2))

	mc := make([]MCCollision, 20)
	for i := range mc {
		mc[i] = MCCollision{PosZ: float32(rng.NormFloat64() * 5), Impact: float32(rng.Float64() * 15)}
	}

	// reconstructed collisions; some MC collisions are reconstructed twice,
	// some not at all
	var colls []Collision
	for i := range mc {
		n := rng.IntN(3)
		for range n {
			colls = append(colls, Collision{
				MCCollision: int32(i),
				PosZ:        mc[i].PosZ + float32(rng.NormFloat64()*0.1),
				Mult:        int32(rng.IntN(60)),
			})
		}
	}

	var tracks []Track
	for i, c := range colls {
		for range int(c.Mult) / 4 {
			tracks = append(tracks, Track{
				Collision: int32(i),
				Pt:        float32(rng.ExpFloat64() * 0.7),
				Eta:       float32(rng.Float64()*3 - 1.5),
				Phi:       float32(rng.Float64() * 6.283),
				TrackType: int32(rng.IntN(3)),
				Flags:     int32(rng.IntN(8)),
				Cov:       []float32{float32(rng.Float64()), float32(rng.Float64()), float32(rng.Float64())},
			})
		}
	}
	// tracks not assigned to any collision
	for range 10 {
		tracks = append(tracks, Track{Collision: -1, Pt: float32(rng.ExpFloat64()), Eta: float32(rng.Float64()*4 - 2), Cov: make([]float32, 3)})
	}

	write("mccollisions.parquet", mc)
	write("collisions.parquet", colls)
	write("tracks.parquet", tracks)
}
