// Package dynamo provides the shared primitives of the furnace heat-transfer
// engine.
//
// The package defines the value types and contracts every other engine
// package builds on:
//
//   - [Field]: dense (radial x axial) array with one value per mesh cell
//   - [Frame]: one recorded step of the temperature, enthalpy and phase fields
//   - [Metric] and [Observer]: per-step consumers of recorded frames
//   - [ParallelFor]: chunked parallel loop used inside a single time step
//   - the error taxonomy ([ConfigError], [InstabilityError],
//     [CollaboratorError], [SimulationError])
//
// # Example
//
//	t := dynamo.NewField(nr, nz)
//	t.Fill(300)
//	dynamo.ParallelFor(t.Len(), 256, func(start, end int) {
//	    for c := start; c < end; c++ {
//	        t.Data[c] += 1
//	    }
//	})
//
// # Thread Safety
//
// Fields are plain slices. Parallel loops are safe as long as every worker
// writes only the indices of its own chunk.
package dynamo
