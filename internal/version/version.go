package version

// Int increases whenever the graph language or the weight order changes.
const Int = 1
