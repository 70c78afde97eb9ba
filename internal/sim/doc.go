// Package sim defines the narrow compute contract the orchestration engine
// drives (model loading, recording and stimulus setup, the long-running
// integration itself, cleanup), the catalog of named cell models, and a
// built-in single-compartment membrane simulator.
package sim
