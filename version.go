package sing

const VersionStr = "0.1.0"
