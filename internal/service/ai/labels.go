package ai

import "fmt"

// cocoLabels maps the SSD MobileNet COCO class ids to names.
var cocoLabels = map[int]string{
	1:  "person",
	2:  "bicycle",
	3:  "car",
	4:  "motorcycle",
	5:  "airplane",
	6:  "bus",
	7:  "train",
	8:  "truck",
	9:  "boat",
	15: "bench",
	16: "bird",
	17: "cat",
	18: "dog",
	19: "horse",
	20: "sheep",
	21: "cow",
	27: "backpack",
	31: "handbag",
	33: "suitcase",
	34: "frisbee",
	37: "sports ball",
	44: "bottle",
	47: "cup",
	51: "bowl",
	62: "chair",
	63: "couch",
	64: "potted plant",
	65: "bed",
	67: "dining table",
	72: "tv",
	73: "laptop",
	77: "cell phone",
	84: "book",
	88: "teddy bear",
}

// ClassLabel maps a model class id to a human-readable label.
func ClassLabel(classID int) string {
	if label, exists := cocoLabels[classID]; exists {
		return label
	}
	return fmt.Sprintf("unknown%d", classID)
}
