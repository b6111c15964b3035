// Package sim provides the stand-ins for hardware the coordination layer
// talks to: sensors, the network link, the SD card and heap statistics.
// Each is an interface so real drivers can replace the simulations.
package sim
