// Package reactor provides the continuously stirred tank model.
//
// [CSTR] implements [dynamo.System] for the state vector
// [Volume, Concentration, Temperature] driven by the four forcing inputs of
// package forcing:
//
//	dV/dt  = qf - q
//	dCa/dt = (qf*Caf - q*Ca)/V - rA - Ca*(dV/dt)/V
//	dT/dt  = (qf*Tf - q*T)/V - T*(dV/dt)/V
//
// The last terms come from expanding d(V*Ca)/dt and d(V*T)/dt with the
// product rule. Density and specific heat are constant and equal on both
// streams. The reaction rate rA comes from a [RateLaw]; the only law shipped
// is [NoReaction].
//
// A volume that is not strictly positive makes the balances undefined and is
// reported as [dynamo.ErrSingularState].
package reactor
