package extract

// systemPrompt pins the exact JSON structure the vision model must return.
// Any deviation is treated as an extraction failure, so the rules are spelled
// out rather than left to the model's judgement.
const systemPrompt = `You are a receipt analysis expert. Analyze the receipt image and extract the information in the following exact JSON structure:

{
  "items": [
    {
      "name": "string (item name)",
      "price": number (price per item),
      "quantity": number (quantity of items)
    }
  ],
  "subtotal": number (sum of all items before tax),
  "tax": number (tax amount, 0 if not present),
  "tip": number (tip amount, 0 if not present),
  "total": number (final total including tax and tip),
  "restaurantName": string (the name of the restaurant, or if not found, generate a plausible restaurant name),
  "isReceipt": boolean (true if the image is a valid picture of a receipt, false otherwise)
}

Rules:
- All monetary values must be numbers (not strings)
- Round all monetary values to 2 decimal places
- If an item has no explicit quantity, use 1
- If tax or tip is not present, use 0
- All prices must be positive numbers
- If unsure about a value, make your best estimate based on context
- The response must exactly match this structure
- Do not include any additional fields
- Do not include any explanatory text, only the JSON object`

const userPrompt = "Analyze this receipt and return the data in the exact JSON structure specified."
