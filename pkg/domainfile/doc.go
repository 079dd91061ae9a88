// Package domainfile parses textual domain descriptions and YAML problem
// files into the raw definitions the planner compiles.
//
// # Domain Description Format
//
// A domain description is a sequence of blocks. Each block starts with a
// keyword on its own line ("state", "if", or "to") and is followed by
// indented-or-not content lines; blank lines and lines starting with "#"
// are ignored. Inside a block, the clause keywords "must", "then", and
// "where" switch which list subsequent lines are appended to.
//
//	state
//	    at AIRPORT
//	    where
//	        AIRPORT is airport
//
//	if
//	    at X
//	    then
//	        not at Y
//	    where
//	        X is airport
//	        Y is airport
//	        X != Y
//
//	to
//	    fly PLANE from ORIG to DEST
//	    must
//	        plane PLANE at ORIG
//	    then
//	        not plane PLANE at ORIG
//	        plane PLANE at DEST
//	    where
//	        PLANE is plane
//	        ORIG is airport
//	        DEST is airport
//	        ORIG != DEST
//
// # Variables and Bindings
//
// A "where" clause introduces typed variables ("X is airport") and
// inequality filters ("X != Y"). Parsing produces an unbound Document;
// Substitute takes bindings (a mapping from type name to the concrete
// values of that type) and expands every block into the cartesian product
// of its variable assignments, substituting whole-word occurrences of each
// variable in state names, action names, and clause lines. A block without
// a where clause expands to exactly one entity.
//
// # Problem Files
//
// A problem file is a YAML document naming a start state, a goal, and
// optionally the bindings to substitute:
//
//	domain: logistics
//	bindings:
//	  plane: [p1, p2]
//	  airport: [sfo, lax]
//	start:
//	  - plane p1 at sfo
//	goal:
//	  - plane p1 at lax
//
// Problem files are validated structurally after decoding.
package domainfile
