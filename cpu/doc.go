// Package cpu implements the processor of the M-20 computer.
//
// The processor executes three-address instructions of 45 bits: a 3-bit
// address tag field, a 6-bit opcode, and the addresses A1, A2 and A3. Each
// tagged address is offset by the index register (RA) modulo the store.
//
// The state of the processor is the instruction register (RK), the program
// counter (KRA), the index register, the result register (RR) with its low
// order companion (RMR), the condition flag (SW), and the four console
// switch registers (RPU).
//
// External devices are reached through the I/O setup (050) and execute
// (070) instructions, and the card reader through 010 and 030. The device
// implementations themselves are in package io.
package cpu
