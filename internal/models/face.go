package models

import "image"

// DescriptorSize is the length of a dlib face descriptor.
const DescriptorSize = 128

// Descriptor is a face feature vector.
type Descriptor [DescriptorSize]float32

// DetectedFace is a face found in a single frame. It is never persisted.
type DetectedFace struct {
	Rect       image.Rectangle
	Descriptor Descriptor
}
