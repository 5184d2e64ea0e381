package audio

// DecodePCM16 converts little-endian 16-bit PCM bytes into float64 samples in
// [-1, 1]. A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float64 {
	samples := make([]float64, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		v := int16(data[i]) | int16(data[i+1])<<8
		samples = append(samples, float64(v)/32768.0)
	}
	return samples
}

// EncodePCM16 converts float64 samples in [-1, 1] to little-endian 16-bit PCM.
// Out-of-range samples are clipped.
func EncodePCM16(samples []float64) []byte {
	data := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		data = append(data, byte(v), byte(v>>8))
	}
	return data
}

// Resample converts samples between rates with linear interpolation. Used to
// bring capture-rate audio down to what the acoustic backend expects.
func Resample(samples []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	newLength := int(float64(len(samples)) / ratio)
	resampled := make([]float64, newLength)

	for i := 0; i < newLength; i++ {
		srcIndex := float64(i) * ratio
		index := int(srcIndex)
		frac := srcIndex - float64(index)

		if index+1 < len(samples) {
			resampled[i] = samples[index]*(1-frac) + samples[index+1]*frac
		} else {
			resampled[i] = samples[index]
		}
	}
	return resampled
}
