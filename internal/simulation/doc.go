// Package simulation provides a multi-client test harness for validating
// emergent dynamics of federated training.
//
// The simulation exercises the real Coordinator, Agent, federation
// engine, and SQLiteStore with no mocks. Scenarios are Go builders that
// configure client counts, environments, and federation triggers, then
// run full training and expose the result plus checkpoint history for
// property-based assertions.
//
// Each test gets an isolated SQLite database via t.TempDir() to prevent
// touching user data.
//
// Usage:
//
//	func TestFederationGain(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:     "federation-gain",
//	        Clients:  3,
//	        Episodes: 200,
//	        EnvFactory: func(client int) training.Environment {
//	            return simulation.NewGridworld(5, 5)
//	        },
//	    })
//	    simulation.AssertCoversState(t, result, "0,0")
//	}
package simulation
