package models

import (
	"fmt"
)

// Rejected is returned by placement policies when no feasible node was found
const Rejected = -1

// NodeType represents the category of a computing node
type NodeType string

const (
	CLOUD           NodeType = "cloud"
	EDGE_DATACENTER NodeType = "edge_datacenter"
	EDGE_DEVICE     NodeType = "edge_device"
)

// Layer represents an architectural tier that can restrict eligible placements
type Layer string

const (
	CLOUD_LAYER Layer = "cloud"
	EDGE_LAYER  Layer = "edge"
	MIST_LAYER  Layer = "mist"
)

// ValidNodeTypes returns all valid node types
func ValidNodeTypes() []NodeType {
	return []NodeType{CLOUD, EDGE_DATACENTER, EDGE_DEVICE}
}

// IsValid checks if a NodeType is valid
func (nt NodeType) IsValid() bool {
	for _, valid := range ValidNodeTypes() {
		if nt == valid {
			return true
		}
	}
	return false
}

// Layer returns the architectural tier the node type belongs to
func (nt NodeType) Layer() Layer {
	switch nt {
	case CLOUD:
		return CLOUD_LAYER
	case EDGE_DATACENTER:
		return EDGE_LAYER
	default:
		return MIST_LAYER
	}
}

// ValidLayers returns all layers in their conventional order
func ValidLayers() []Layer {
	return []Layer{CLOUD_LAYER, EDGE_LAYER, MIST_LAYER}
}

// ParseLayer converts a string into a Layer
func ParseLayer(s string) (Layer, error) {
	for _, l := range ValidLayers() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layer %q", s)
}

// ContainsLayer reports whether layer is in layers
func ContainsLayer(layers []Layer, layer Layer) bool {
	for _, l := range layers {
		if l == layer {
			return true
		}
	}
	return false
}
